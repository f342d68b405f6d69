package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence operations for picking orders and lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PickingOrder) error
	FindByID(ctx context.Context, id int64) (*models.PickingOrder, error)
	LockByIDs(ctx context.Context, ids []int64) ([]models.PickingOrder, error)
	ListByWave(ctx context.Context, waveID int64) ([]models.PickingOrder, error)
	List(ctx context.Context, tenantID int64, params pagination.Params, filters ListFilters) ([]models.PickingOrder, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	AssignWave(ctx context.Context, ids []int64, waveID int64) error
	ReleaseWave(ctx context.Context, waveID int64) error
	MarkWavePicked(ctx context.Context, waveID int64, pickedBy *int64, pickedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its lines.
func (r *repository) Create(ctx context.Context, order *models.PickingOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.PickingOrder, error) {
	var order models.PickingOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByIDs locks the orders in id order and loads their lines.
func (r *repository) LockByIDs(ctx context.Context, ids []int64) ([]models.PickingOrder, error) {
	var orders []models.PickingOrder
	if len(ids) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListByWave(ctx context.Context, waveID int64) ([]models.PickingOrder, error) {
	var orders []models.PickingOrder
	err := r.db.WithContext(ctx).
		Where("wave_id = ?", waveID).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) List(ctx context.Context, tenantID int64, params pagination.Params, filters ListFilters) ([]models.PickingOrder, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tenant_id = ?", tenantID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.WaveID != nil {
		query = query.Where("wave_id = ?", *filters.WaveID)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("id < ?", cursor.ID)
	}

	var orders []models.PickingOrder
	err = query.Order("id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&orders).Error
	return orders, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Model(&models.PickingOrder{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) AssignWave(ctx context.Context, ids []int64, waveID int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PickingOrder{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     enums.OrderStatusPicking,
			"wave_id":    waveID,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ReleaseWave returns the wave's orders to pending and detaches them.
func (r *repository) ReleaseWave(ctx context.Context, waveID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.PickingOrder{}).
		Where("wave_id = ?", waveID).
		Updates(map[string]any{
			"status":     enums.OrderStatusPending,
			"wave_id":    nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) MarkWavePicked(ctx context.Context, waveID int64, pickedBy *int64, pickedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PickingOrder{}).
		Where("wave_id = ? AND status = ?", waveID, enums.OrderStatusPicking).
		Updates(map[string]any{
			"status":     enums.OrderStatusPicked,
			"picked_by":  pickedBy,
			"picked_at":  pickedAt,
			"updated_at": pickedAt,
		}).Error
}
