// Package picking records confirmed picks against wave items and completes
// the wave once every item is picked.
package picking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/internal/reservations"
	"github.com/angelmondragon/wavepick-backend/internal/waves"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

// ReferenceWave tags picking movements with the wave they belong to.
const ReferenceWave = "picking_wave"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Ledger is the slice of the inventory ledger picking needs.
type Ledger interface {
	LockPositions(ctx context.Context, tx *gorm.DB, ids []int64) ([]models.InventoryPosition, error)
	ConsumeReservation(ctx context.Context, tx *gorm.DB, input inventory.ConsumeInput) error
}

var _ Ledger = (*inventory.Ledger)(nil)

// ConfirmPickInput reports units taken off the shelf for a wave item.
type ConfirmPickInput struct {
	TenantID    int64
	WaveItemID  int64
	Quantity    int
	ActorUserID int64
	ActorRole   string
}

// PickResult is the item after the pick plus the wave status it left behind.
type PickResult struct {
	Item          models.PickingWaveItem `json:"item"`
	WaveStatus    enums.WaveStatus       `json:"wave_status"`
	WaveCompleted bool                   `json:"wave_completed"`
}

// Service defines pick confirmation.
type Service interface {
	ConfirmPick(ctx context.Context, input ConfirmPickInput) (*PickResult, error)
}

type ServiceParams struct {
	Waves        waves.Repository
	Orders       orders.Repository
	Reservations reservations.Repository
	Ledger       Ledger
	Tx           txRunner
	Outbox       outboxPublisher
	Logger       *logger.Logger
	Metrics      *metrics.WarehouseMetrics
}

type service struct {
	waves        waves.Repository
	orders       orders.Repository
	reservations reservations.Repository
	ledger       Ledger
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	metrics      *metrics.WarehouseMetrics
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Waves == nil:
		return nil, fmt.Errorf("wave repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		waves:        params.Waves,
		orders:       params.Orders,
		reservations: params.Reservations,
		ledger:       params.Ledger,
		tx:           params.Tx,
		outbox:       params.Outbox,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// ConfirmPick adds quantity to the item's picked count and consumes the
// matching reservations. The wave row is locked first so that confirmations
// on sibling items serialise, and the completion check re-reads every
// sibling under lock in the same transaction.
func (s *service) ConfirmPick(ctx context.Context, input ConfirmPickInput) (*PickResult, error) {
	if input.WaveItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wave item id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "picked quantity must be positive")
	}

	var (
		result   *PickResult
		wave     *models.PickingWave
		orderIDs []int64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, wave, orderIDs = nil, nil, nil
		waveRepo := s.waves.WithTx(tx)

		item, err := waveRepo.FindItem(ctx, input.WaveItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wave item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wave item")
		}
		if item.TenantID != input.TenantID {
			return pkgerrors.TenantMismatch("wave item", item.ID)
		}

		wave, err = waveRepo.LockByID(ctx, item.WaveID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wave")
		}
		switch wave.Status {
		case enums.WaveStatusPending, enums.WaveStatusPicking:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("wave is %s; picks are closed", wave.Status))
		}

		item, err = waveRepo.LockItem(ctx, input.WaveItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wave item")
		}
		if item.PickedQuantity+input.Quantity > item.TotalQuantity {
			return pkgerrors.OverPicked(item.ID, item.TotalQuantity, item.PickedQuantity, input.Quantity)
		}

		performedBy := actorID(input.ActorUserID)
		if err := s.consume(ctx, tx, wave.ID, item.ID, input.Quantity, performedBy); err != nil {
			return err
		}

		item.PickedQuantity += input.Quantity
		updates := map[string]any{"picked_quantity": item.PickedQuantity}
		if item.PickedQuantity == item.TotalQuantity {
			now := timeNow()
			item.Status = enums.WaveItemStatusPicked
			item.PickedBy = performedBy
			item.PickedAt = &now
			updates["picked_by"] = performedBy
			updates["picked_at"] = now
		} else {
			item.Status = enums.WaveItemStatusPicking
		}
		updates["status"] = item.Status
		if err := waveRepo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wave item")
		}

		if wave.Status == enums.WaveStatusPending {
			if err := waveRepo.Update(ctx, wave.ID, map[string]any{"status": enums.WaveStatusPicking}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start wave")
			}
			wave.Status = enums.WaveStatusPicking
		}

		result = &PickResult{Item: *item, WaveStatus: wave.Status}

		siblings, err := waveRepo.LockItems(ctx, wave.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wave items")
		}
		if !allPicked(siblings) {
			return nil
		}

		orderIDs, err = s.completeWave(ctx, tx, wave, performedBy, input)
		if err != nil {
			return err
		}
		result.WaveStatus = wave.Status
		result.WaveCompleted = true
		return nil
	})
	if err != nil {
		s.observeFailure(ctx, input, err)
		return nil, err
	}

	s.metrics.ObservePick(metrics.OutcomePicked, input.Quantity)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"wave_id":      wave.ID,
			"wave_item_id": result.Item.ID,
			"quantity":     input.Quantity,
			"picked":       result.Item.PickedQuantity,
			"total":        result.Item.TotalQuantity,
		})
		s.logg.Info(logCtx, "pick confirmed")
		if result.WaveCompleted {
			s.logg.Info(s.logg.WithField(logCtx, "orders", orderIDs), "wave completed")
		}
	}
	if result.WaveCompleted {
		s.metrics.ObserveWave(string(enums.WaveStatusCompleted))
	}
	return result, nil
}

// consume converts qty units of the item's reservations, oldest first, into
// picking movements. Reservations fully consumed are deleted.
func (s *service) consume(ctx context.Context, tx *gorm.DB, waveID, itemID int64, qty int, performedBy *int64) error {
	resRepo := s.reservations.WithTx(tx)
	rows, err := resRepo.ListByWaveItem(ctx, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item reservations")
	}

	positionIDs := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.PositionID]; !ok {
			seen[row.PositionID] = struct{}{}
			positionIDs = append(positionIDs, row.PositionID)
		}
	}
	sort.Slice(positionIDs, func(i, j int) bool { return positionIDs[i] < positionIDs[j] })
	if _, err := s.ledger.LockPositions(ctx, tx, positionIDs); err != nil {
		return err
	}

	remaining := qty
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		take := min(remaining, row.Quantity)
		if take <= 0 {
			continue
		}
		ref := waveID
		if err := s.ledger.ConsumeReservation(ctx, tx, inventory.ConsumeInput{
			PositionID:    row.PositionID,
			Quantity:      take,
			ReferenceType: ReferenceWave,
			ReferenceID:   &ref,
			PerformedBy:   performedBy,
		}); err != nil {
			return err
		}
		if take == row.Quantity {
			err = resRepo.Delete(ctx, row.ID)
		} else {
			err = resRepo.Reduce(ctx, row.ID, take)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reservation")
		}
		remaining -= take
	}
	if remaining > 0 {
		return pkgerrors.ConsistencyViolation("wave item %d has %d units fewer reserved than still to pick", itemID, remaining)
	}
	return nil
}

func (s *service) completeWave(ctx context.Context, tx *gorm.DB, wave *models.PickingWave, pickedBy *int64, input ConfirmPickInput) ([]int64, error) {
	now := timeNow()
	if err := s.waves.WithTx(tx).Update(ctx, wave.ID, map[string]any{
		"status":    enums.WaveStatusCompleted,
		"picked_by": pickedBy,
		"picked_at": now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete wave")
	}
	wave.Status = enums.WaveStatusCompleted
	wave.PickedBy = pickedBy
	wave.PickedAt = &now

	orderRepo := s.orders.WithTx(tx)
	if err := orderRepo.MarkWavePicked(ctx, wave.ID, pickedBy, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark orders picked")
	}
	waveOrders, err := orderRepo.ListByWave(ctx, wave.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wave orders")
	}
	orderIDs := make([]int64, 0, len(waveOrders))
	for _, order := range waveOrders {
		orderIDs = append(orderIDs, order.ID)
	}

	var actor *outbox.ActorRef
	if input.ActorUserID > 0 {
		actor = &outbox.ActorRef{UserID: input.ActorUserID, TenantID: input.TenantID, Role: input.ActorRole}
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWaveCompleted,
		AggregateType: enums.AggregateWave,
		AggregateID:   wave.ID,
		Actor:         actor,
		OccurredAt:    now,
		Data: payloads.WaveCompletedEvent{
			WaveID:      wave.ID,
			WaveNumber:  wave.WaveNumber,
			TenantID:    wave.TenantID,
			OrderIDs:    orderIDs,
			PickedBy:    pickedBy,
			CompletedAt: now,
		},
	})
	if err != nil {
		return nil, err
	}
	return orderIDs, nil
}

func (s *service) observeFailure(ctx context.Context, input ConfirmPickInput, err error) {
	outcome := metrics.OutcomeError
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeOverPick):
		outcome = metrics.OutcomeOverPick
	case pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict):
		outcome = metrics.OutcomeConflict
	}
	s.metrics.ObservePick(outcome, 0)
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"wave_item_id": input.WaveItemID, "quantity": input.Quantity})
	if pkgerrors.HasCode(err, pkgerrors.CodeDependency) || pkgerrors.HasCode(err, pkgerrors.CodeConsistencyViolation) {
		s.logg.Error(logCtx, "pick confirmation failed", err)
		return
	}
	s.logg.Warn(s.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), "pick rejected")
}

func allPicked(items []models.PickingWaveItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if item.Status != enums.WaveItemStatusPicked {
			return false
		}
	}
	return true
}

func actorID(userID int64) *int64 {
	if userID <= 0 {
		return nil
	}
	return &userID
}
