package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DriftReporter receives positions whose reserved counter no longer matches
// their reservations.
type DriftReporter interface {
	Report(positionID int64)
}

// ConsumeInput describes units leaving a position because they were picked.
type ConsumeInput struct {
	PositionID    int64
	Quantity      int
	ReferenceType string
	ReferenceID   *int64
	PerformedBy   *int64
}

// ReceiveInput creates a new position with on-hand stock.
type ReceiveInput struct {
	PositionInput
	PerformedBy *int64
}

type LedgerParams struct {
	Repo    Repository
	Catalog catalog.Repository
	Tx      txRunner
	Logger  *logger.Logger
	Drift   DriftReporter
}

// Ledger is the authoritative record of on-hand and reserved quantity per
// position. Mutations run inside the caller's transaction.
type Ledger struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	logg    *logger.Logger
	drift   DriftReporter
}

func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Ledger{
		repo:    params.Repo,
		catalog: params.Catalog,
		tx:      params.Tx,
		logg:    params.Logger,
		drift:   params.Drift,
	}, nil
}

// GetAvailable lists the tenant's available positions for a product in FEFO
// order without locking them.
func (l *Ledger) GetAvailable(ctx context.Context, tenantID, productID int64) ([]models.InventoryPosition, error) {
	positions, err := l.repo.ListAvailable(ctx, tenantID, productID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available positions")
	}
	return positions, nil
}

// LockAvailable is GetAvailable inside tx with row locks held until commit.
func (l *Ledger) LockAvailable(ctx context.Context, tx *gorm.DB, tenantID, productID int64) ([]models.InventoryPosition, error) {
	positions, err := l.repo.WithTx(tx).ListAvailable(ctx, tenantID, productID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock available positions")
	}
	return positions, nil
}

// LockPositions locks the given positions in id order.
func (l *Ledger) LockPositions(ctx context.Context, tx *gorm.DB, ids []int64) ([]models.InventoryPosition, error) {
	positions, err := l.repo.WithTx(tx).LockByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock positions")
	}
	return positions, nil
}

// CommitReservation raises reserved_quantity by delta or fails with
// INSUFFICIENT_STOCK when that would exceed quantity.
func (l *Ledger) CommitReservation(ctx context.Context, tx *gorm.DB, positionID int64, delta int) error {
	if delta <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation delta must be positive")
	}
	repo := l.repo.WithTx(tx)
	ok, err := repo.IncrementReserved(ctx, positionID, delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit reservation")
	}
	if ok {
		return nil
	}

	position, err := l.loadPosition(ctx, repo, positionID)
	if err != nil {
		return err
	}
	available := position.AvailableQuantity()
	if position.Status != enums.PositionStatusAvailable {
		available = 0
	}
	return pkgerrors.InsufficientStock(position.ProductID, delta, available)
}

// ReleaseReservation lowers reserved_quantity by delta. Going below zero is
// never clamped here: it is reported as drift and surfaced as a consistency
// violation.
func (l *Ledger) ReleaseReservation(ctx context.Context, tx *gorm.DB, positionID int64, delta int) error {
	if delta <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release delta must be positive")
	}
	repo := l.repo.WithTx(tx)
	ok, err := repo.DecrementReserved(ctx, positionID, delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release reservation")
	}
	if ok {
		return nil
	}
	if _, err := l.loadPosition(ctx, repo, positionID); err != nil {
		return err
	}
	return l.violation(ctx, positionID, "releasing %d units would make reserved quantity of position %d negative", delta, positionID)
}

// ConsumeReservation converts reserved units into a picking movement:
// quantity and reserved_quantity drop together.
func (l *Ledger) ConsumeReservation(ctx context.Context, tx *gorm.DB, input ConsumeInput) error {
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "consumed quantity must be positive")
	}
	repo := l.repo.WithTx(tx)
	position, err := l.loadPosition(ctx, repo, input.PositionID)
	if err != nil {
		return err
	}
	ok, err := repo.Consume(ctx, input.PositionID, input.Quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reservation")
	}
	if !ok {
		return l.violation(ctx, input.PositionID, "consuming %d units exceeds reserved or on-hand quantity of position %d", input.Quantity, input.PositionID)
	}

	fromLocation := position.LocationID
	movement := &models.StockMovement{
		TenantID:       position.TenantID,
		ProductID:      position.ProductID,
		PositionID:     position.ID,
		FromLocationID: &fromLocation,
		Batch:          position.Batch,
		Quantity:       input.Quantity,
		MovementType:   enums.MovementTypePicking,
		ReferenceType:  input.ReferenceType,
		ReferenceID:    input.ReferenceID,
		PerformedBy:    input.PerformedBy,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record picking movement")
	}
	return nil
}

// ReceiveStock creates a position after checking that its product and
// location belong to the same tenant, and records a receiving movement.
func (l *Ledger) ReceiveStock(ctx context.Context, input ReceiveInput) (*models.InventoryPosition, error) {
	position, err := NewPosition(input.PositionInput)
	if err != nil {
		return nil, err
	}

	err = l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := l.catalog.WithTx(tx)
		product, err := catalogRepo.FindProduct(ctx, position.ProductID)
		if err != nil {
			return notFoundOr(err, "product not found", "load product")
		}
		if product.TenantID != position.TenantID {
			return pkgerrors.TenantMismatch("product", product.ID)
		}
		location, err := catalogRepo.FindLocation(ctx, position.LocationID)
		if err != nil {
			return notFoundOr(err, "location not found", "load location")
		}
		if location.TenantID != position.TenantID {
			return pkgerrors.TenantMismatch("location", location.ID)
		}

		repo := l.repo.WithTx(tx)
		if err := repo.Create(ctx, position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create position")
		}
		toLocation := location.ID
		return repo.CreateMovement(ctx, &models.StockMovement{
			TenantID:      position.TenantID,
			ProductID:     position.ProductID,
			PositionID:    position.ID,
			ToLocationID:  &toLocation,
			Batch:         position.Batch,
			Quantity:      position.Quantity,
			MovementType:  enums.MovementTypeReceiving,
			ReferenceType: "position",
			ReferenceID:   &position.ID,
			PerformedBy:   input.PerformedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

func (l *Ledger) loadPosition(ctx context.Context, repo Repository, id int64) (*models.InventoryPosition, error) {
	position, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "inventory position not found", "load inventory position")
	}
	return position, nil
}

func (l *Ledger) violation(ctx context.Context, positionID int64, format string, args ...any) error {
	err := pkgerrors.ConsistencyViolation(format, args...)
	if l.logg != nil {
		logCtx := l.logg.WithField(ctx, "position_id", positionID)
		l.logg.Error(logCtx, "inventory ledger consistency violation", err)
	}
	if l.drift != nil {
		l.drift.Report(positionID)
	}
	return err
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
