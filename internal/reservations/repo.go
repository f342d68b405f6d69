// Package reservations is the durable record of stock claims. A position's
// reserved_quantity must always equal the sum of its rows here.
package reservations

import (
	"context"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id int64) (*models.Reservation, error)
	LockByID(ctx context.Context, id int64) (*models.Reservation, error)
	ListStandaloneByOrders(ctx context.Context, orderIDs []int64) ([]models.Reservation, error)
	ListByWave(ctx context.Context, waveID int64) ([]models.Reservation, error)
	ListByWaveItem(ctx context.Context, waveItemID int64) ([]models.Reservation, error)
	AttachToWave(ctx context.Context, ids []int64, waveID, waveItemID int64) error
	Reduce(ctx context.Context, id int64, by int) error
	Delete(ctx context.Context, id int64) error
	SumByPositions(ctx context.Context, positionIDs []int64) (map[int64]int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) LockByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListStandaloneByOrders returns reservations not yet attached to a wave.
func (r *repository) ListStandaloneByOrders(ctx context.Context, orderIDs []int64) ([]models.Reservation, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, r.db.Where("order_id IN ? AND wave_id IS NULL", orderIDs))
}

func (r *repository) ListByWave(ctx context.Context, waveID int64) ([]models.Reservation, error) {
	return r.list(ctx, r.db.Where("wave_id = ?", waveID))
}

func (r *repository) ListByWaveItem(ctx context.Context, waveItemID int64) ([]models.Reservation, error) {
	return r.list(ctx, r.db.Where("wave_item_id = ?", waveItemID))
}

func (r *repository) list(ctx context.Context, query *gorm.DB) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := query.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) AttachToWave(ctx context.Context, ids []int64, waveID, waveItemID int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"wave_id":      waveID,
			"wave_item_id": waveItemID,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *repository) Reduce(ctx context.Context, id int64, by int) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", by),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reservation{}).Error
}

// SumByPositions totals reservation quantities per position. Positions with
// no reservations are absent from the map.
func (r *repository) SumByPositions(ctx context.Context, positionIDs []int64) (map[int64]int, error) {
	sums := make(map[int64]int, len(positionIDs))
	if len(positionIDs) == 0 {
		return sums, nil
	}
	var rows []struct {
		PositionID int64
		Total      int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("position_id, COALESCE(SUM(quantity), 0) AS total").
		Where("position_id IN ?", positionIDs).
		Group("position_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.PositionID] = row.Total
	}
	return sums, nil
}
