package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	client, conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventWaveCreated,
			AggregateType: enums.AggregateWave,
			AggregateID:   42,
			Actor:         &ActorRef{UserID: 9, TenantID: 1},
			Data:          map[string]any{"wave_id": 42},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, int64(9), envelope.Actor.UserID)
	assert.JSONEq(t, `{"wave_id":42}`, string(envelope.Data))
}

func TestEmitRolledBackWithBusinessChange(t *testing.T) {
	client, conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventWaveCanceled,
			AggregateType: enums.AggregateWave,
			AggregateID:   1,
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client, conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Insert(conn, models.OutboxEvent{
			EventType:     enums.EventWaveCreated,
			AggregateType: enums.AggregateWave,
			AggregateID:   int64(i),
			Payload:       json.RawMessage(`{}`),
		}))
	}

	var fetched []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		if err := repo.MarkPublishedTx(tx, fetched[0].ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, fetched[1].ID, errors.New("unavailable")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, fetched[2].ID, errors.New("bad payload"), 3)
	}))
	require.Len(t, fetched, 3)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		remaining, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, fetched[1].ID, remaining[0].ID)
		assert.Equal(t, 1, remaining[0].AttemptCount)
		return nil
	}))
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	_, conn := dbtest.Open(t)
	repo := NewRepository(conn)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	for _, publishedAt := range []*time.Time{&old, &recent, nil} {
		require.NoError(t, conn.Create(&models.OutboxEvent{
			EventType:     enums.EventWaveCompleted,
			AggregateType: enums.AggregateWave,
			AggregateID:   1,
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   publishedAt,
		}).Error)
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
