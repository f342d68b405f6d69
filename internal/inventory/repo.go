package inventory

import (
	"context"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fefoOrder sorts soonest-to-expire first, undated stock last, then by id.
const fefoOrder = "CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END ASC, expiry_date ASC, id ASC"

// Repository persists inventory positions and stock movements. The counter
// updates are conditional: they report false instead of breaking
// 0 <= reserved_quantity <= quantity.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, position *models.InventoryPosition) error
	FindByID(ctx context.Context, id int64) (*models.InventoryPosition, error)
	LockByIDs(ctx context.Context, ids []int64) ([]models.InventoryPosition, error)
	ListAvailable(ctx context.Context, tenantID, productID int64, lock bool) ([]models.InventoryPosition, error)
	IncrementReserved(ctx context.Context, id int64, delta int) (bool, error)
	DecrementReserved(ctx context.Context, id int64, delta int) (bool, error)
	Consume(ctx context.Context, id int64, qty int) (bool, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListReconcileCandidates(ctx context.Context, tenantID *int64, afterID int64, limit int) ([]int64, error)
	SetReserved(ctx context.Context, id int64, from, to int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, position *models.InventoryPosition) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.InventoryPosition, error) {
	var position models.InventoryPosition
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&position).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

// LockByIDs takes row locks in ascending id order so concurrent callers
// touching overlapping positions cannot deadlock.
func (r *repository) LockByIDs(ctx context.Context, ids []int64) ([]models.InventoryPosition, error) {
	var positions []models.InventoryPosition
	if len(ids) == 0 {
		return positions, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&positions).Error
	return positions, err
}

func (r *repository) ListAvailable(ctx context.Context, tenantID, productID int64, lock bool) ([]models.InventoryPosition, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var positions []models.InventoryPosition
	err := query.
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Where("status = ?", enums.PositionStatusAvailable).
		Where("quantity > reserved_quantity").
		Order(fefoOrder).
		Find(&positions).Error
	return positions, err
}

func (r *repository) IncrementReserved(ctx context.Context, id int64, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryPosition{}).
		Where("id = ? AND status = ?", id, enums.PositionStatusAvailable).
		Where("reserved_quantity + ? <= quantity", delta).
		Updates(map[string]any{
			"reserved_quantity": gorm.Expr("reserved_quantity + ?", delta),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DecrementReserved(ctx context.Context, id int64, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryPosition{}).
		Where("id = ? AND reserved_quantity >= ?", id, delta).
		Updates(map[string]any{
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", delta),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Consume removes picked units from both on-hand and reserved, leaving
// available unchanged.
func (r *repository) Consume(ctx context.Context, id int64, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryPosition{}).
		Where("id = ? AND reserved_quantity >= ? AND quantity >= ?", id, qty, qty).
		Updates(map[string]any{
			"quantity":          gorm.Expr("quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty),
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListReconcileCandidates pages through positions that either carry a
// reserved counter or are referenced by a reservation, in id order.
func (r *repository) ListReconcileCandidates(ctx context.Context, tenantID *int64, afterID int64, limit int) ([]int64, error) {
	referenced := r.db.Model(&models.Reservation{}).Select("position_id")
	query := r.db.WithContext(ctx).
		Model(&models.InventoryPosition{}).
		Where("id > ?", afterID).
		Where(r.db.Where("reserved_quantity <> 0").Or("id IN (?)", referenced))
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var ids []int64
	err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error
	return ids, err
}

// SetReserved overwrites the reserved counter only if it still holds from.
func (r *repository) SetReserved(ctx context.Context, id int64, from, to int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryPosition{}).
		Where("id = ? AND reserved_quantity = ?", id, from).
		Updates(map[string]any{
			"reserved_quantity": to,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
