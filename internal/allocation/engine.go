// Package allocation turns demand lines into reservations against inventory
// positions, consuming the soonest-to-expire stock first.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/internal/reservations"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Ledger is the slice of the inventory ledger the engine needs.
type Ledger interface {
	LockAvailable(ctx context.Context, tx *gorm.DB, tenantID, productID int64) ([]models.InventoryPosition, error)
	LockPositions(ctx context.Context, tx *gorm.DB, ids []int64) ([]models.InventoryPosition, error)
	CommitReservation(ctx context.Context, tx *gorm.DB, positionID int64, delta int) error
	ReleaseReservation(ctx context.Context, tx *gorm.DB, positionID int64, delta int) error
}

var _ Ledger = (*inventory.Ledger)(nil)

// Line is one unit of demand: a quantity of a product for an order.
type Line struct {
	TenantID    int64
	OrderID     int64
	OrderLineID *int64
	ProductID   int64
	Quantity    int
}

type Params struct {
	Ledger       Ledger
	Reservations reservations.Repository
	Orders       orders.Repository
	Tx           txRunner
	Logger       *logger.Logger
	Metrics      *metrics.WarehouseMetrics
}

// Engine allocates and releases stock. Each public call is one transaction;
// the Tx variants run inside a caller's transaction so that a larger
// operation rolls back as a whole.
type Engine struct {
	ledger       Ledger
	reservations reservations.Repository
	orders       orders.Repository
	tx           txRunner
	logg         *logger.Logger
	metrics      *metrics.WarehouseMetrics
}

func NewEngine(params Params) (*Engine, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Engine{
		ledger:       params.Ledger,
		reservations: params.Reservations,
		orders:       params.Orders,
		tx:           params.Tx,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Allocate reserves line.Quantity units for a pending order. Either the
// returned reservations sum exactly to the requested quantity or nothing is
// written.
func (e *Engine) Allocate(ctx context.Context, line Line) ([]models.Reservation, error) {
	if err := validateLine(line); err != nil {
		return nil, err
	}

	var result []models.Reservation
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := e.orders.WithTx(tx).LockByIDs(ctx, []int64{line.OrderID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if len(locked) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order := locked[0]
		if order.TenantID != line.TenantID {
			return pkgerrors.TenantMismatch("order", order.ID)
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s; only pending orders can be allocated", order.Status))
		}
		if line.OrderLineID != nil && !hasLine(order, *line.OrderLineID, line.ProductID) {
			return pkgerrors.New(pkgerrors.CodeValidation, "order line does not match order and product")
		}
		if err := e.checkDemand(ctx, tx, order, line); err != nil {
			return err
		}

		result, err = e.AllocateTx(ctx, tx, line)
		return err
	})
	e.observe(ctx, line, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllocateTx walks the available positions in FEFO order, reserving from each
// until the line is covered. A shortfall returns INSUFFICIENT_STOCK and the
// caller must roll tx back.
func (e *Engine) AllocateTx(ctx context.Context, tx *gorm.DB, line Line) ([]models.Reservation, error) {
	if err := validateLine(line); err != nil {
		return nil, err
	}

	positions, err := e.ledger.LockAvailable(ctx, tx, line.TenantID, line.ProductID)
	if err != nil {
		return nil, err
	}

	repo := e.reservations.WithTx(tx)
	remaining := line.Quantity
	created := make([]models.Reservation, 0, 2)
	for _, position := range positions {
		if remaining == 0 {
			break
		}
		take := min(remaining, position.AvailableQuantity())
		if take <= 0 {
			continue
		}
		if err := e.ledger.CommitReservation(ctx, tx, position.ID, take); err != nil {
			return nil, err
		}
		reservation := models.Reservation{
			TenantID:    line.TenantID,
			PositionID:  position.ID,
			ProductID:   line.ProductID,
			OrderID:     line.OrderID,
			OrderLineID: line.OrderLineID,
			Quantity:    take,
		}
		if err := repo.Create(ctx, &reservation); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		created = append(created, reservation)
		remaining -= take
	}

	if remaining > 0 {
		return nil, pkgerrors.InsufficientStock(line.ProductID, line.Quantity, line.Quantity-remaining)
	}
	return created, nil
}

// Release deletes a standalone reservation and returns its units to the
// position. Reservations picked up by a wave are released by cancelling the
// wave.
func (e *Engine) Release(ctx context.Context, tenantID, reservationID int64) error {
	var released int
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservation, err := e.reservations.WithTx(tx).LockByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if reservation.TenantID != tenantID {
			return pkgerrors.TenantMismatch("reservation", reservation.ID)
		}
		if reservation.WaveID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is part of a wave; cancel the wave instead")
		}
		released, err = e.ReleaseTx(ctx, tx, []models.Reservation{*reservation})
		return err
	})
	if err != nil {
		return err
	}
	e.metrics.ObserveRelease(released)
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{"reservation_id": reservationID, "quantity": released})
		e.logg.Info(logCtx, "reservation released")
	}
	return nil
}

// ReleaseOrderTx releases every reservation of the order that is not part of
// a wave.
func (e *Engine) ReleaseOrderTx(ctx context.Context, tx *gorm.DB, orderID int64) (int, error) {
	rows, err := e.reservations.WithTx(tx).ListStandaloneByOrders(ctx, []int64{orderID})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order reservations")
	}
	released, err := e.ReleaseTx(ctx, tx, rows)
	if err != nil {
		return 0, err
	}
	e.metrics.ObserveRelease(released)
	return released, nil
}

// ReleaseTx returns each reservation's units to its position and deletes
// the rows. Positions are locked in id order first.
func (e *Engine) ReleaseTx(ctx context.Context, tx *gorm.DB, rows []models.Reservation) (int, error) {
	if len(rows) == 0 {
		return 0, nil
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
	if _, err := e.ledger.LockPositions(ctx, tx, positionIDs); err != nil {
		return 0, err
	}

	repo := e.reservations.WithTx(tx)
	total := 0
	for _, row := range rows {
		if row.Quantity > 0 {
			if err := e.ledger.ReleaseReservation(ctx, tx, row.PositionID, row.Quantity); err != nil {
				return 0, err
			}
		}
		if err := repo.Delete(ctx, row.ID); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reservation")
		}
		total += row.Quantity
	}
	return total, nil
}

func (e *Engine) observe(ctx context.Context, line Line, rows []models.Reservation, err error) {
	outcome := metrics.OutcomeAllocated
	switch {
	case err == nil:
	case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
		outcome = metrics.OutcomeInsufficientStock
	case pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict):
		outcome = metrics.OutcomeConflict
	default:
		outcome = metrics.OutcomeError
	}
	e.metrics.ObserveAllocation(outcome, line.Quantity)

	if e.logg == nil {
		return
	}
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"tenant_id":  line.TenantID,
		"order_id":   line.OrderID,
		"product_id": line.ProductID,
		"requested":  line.Quantity,
	})
	switch outcome {
	case metrics.OutcomeAllocated:
		logCtx = e.logg.WithField(logCtx, "reservations", len(rows))
		e.logg.Info(logCtx, "demand line allocated")
	case metrics.OutcomeError:
		if pkgerrors.HasCode(err, pkgerrors.CodeDependency) || pkgerrors.HasCode(err, pkgerrors.CodeConsistencyViolation) {
			e.logg.Error(logCtx, "allocation failed", err)
			return
		}
		e.logg.Warn(e.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), "allocation rejected")
	default:
		e.logg.Warn(e.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), "allocation rejected")
	}
}

// checkDemand keeps the order's standalone reservations for a product within
// what its lines request.
func (e *Engine) checkDemand(ctx context.Context, tx *gorm.DB, order models.PickingOrder, line Line) error {
	demand := Demand(order)[line.ProductID]
	if demand == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %d is not on order %d", line.ProductID, order.ID))
	}
	if line.Quantity > demand {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order requests %d units of product %d", demand, line.ProductID)).
			WithDetails(DemandExceeded{ProductID: line.ProductID, Demand: demand, Requested: line.Quantity})
	}

	rows, err := e.reservations.WithTx(tx).ListStandaloneByOrders(ctx, []int64{order.ID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order reservations")
	}
	reserved := 0
	for _, row := range rows {
		if row.ProductID == line.ProductID {
			reserved += row.Quantity
		}
	}
	if reserved+line.Quantity > demand {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order already holds %d of %d units of product %d", reserved, demand, line.ProductID)).
			WithDetails(DemandExceeded{ProductID: line.ProductID, Demand: demand, Reserved: reserved, Requested: line.Quantity})
	}
	return nil
}

// DemandExceeded describes an allocation larger than the order asks for.
type DemandExceeded struct {
	ProductID int64 `json:"product_id"`
	Demand    int   `json:"demand"`
	Reserved  int   `json:"reserved"`
	Requested int   `json:"requested"`
}

// Demand totals the requested quantity per product across the order's lines.
func Demand(order models.PickingOrder) map[int64]int {
	demand := make(map[int64]int, len(order.Lines))
	for _, line := range order.Lines {
		demand[line.ProductID] += line.RequestedQuantity
	}
	return demand
}

func validateLine(line Line) error {
	switch {
	case line.TenantID <= 0:
		return pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	case line.OrderID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	case line.ProductID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	case line.Quantity <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func hasLine(order models.PickingOrder, lineID, productID int64) bool {
	for _, line := range order.Lines {
		if line.ID == lineID {
			return line.ProductID == productID
		}
	}
	return false
}
