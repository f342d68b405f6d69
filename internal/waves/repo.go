package waves

import (
	"context"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists waves and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wave *models.PickingWave) error
	CreateItems(ctx context.Context, items []models.PickingWaveItem) error
	FindByID(ctx context.Context, id int64) (*models.PickingWave, error)
	LockByID(ctx context.Context, id int64) (*models.PickingWave, error)
	FindItem(ctx context.Context, id int64) (*models.PickingWaveItem, error)
	LockItem(ctx context.Context, id int64) (*models.PickingWaveItem, error)
	LockItems(ctx context.Context, waveID int64) ([]models.PickingWaveItem, error)
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	UpdateItem(ctx context.Context, id int64, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wave repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wave *models.PickingWave) error {
	return r.db.WithContext(ctx).Omit("Items").Create(wave).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.PickingWaveItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindByID loads the wave with its items in pick order.
func (r *repository) FindByID(ctx context.Context, id int64) (*models.PickingWave, error) {
	var wave models.PickingWave
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&wave).Error
	if err != nil {
		return nil, err
	}
	return &wave, nil
}

func (r *repository) LockByID(ctx context.Context, id int64) (*models.PickingWave, error) {
	var wave models.PickingWave
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wave).Error
	if err != nil {
		return nil, err
	}
	return &wave, nil
}

func (r *repository) FindItem(ctx context.Context, id int64) (*models.PickingWaveItem, error) {
	var item models.PickingWaveItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) LockItem(ctx context.Context, id int64) (*models.PickingWaveItem, error) {
	var item models.PickingWaveItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// LockItems re-reads every item of the wave under a row lock.
func (r *repository) LockItems(ctx context.Context, waveID int64) ([]models.PickingWaveItem, error) {
	var items []models.PickingWaveItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wave_id = ?", waveID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// LastNumberWithPrefix returns the highest wave number starting with prefix,
// or an empty string when none exists.
func (r *repository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.PickingWave{}).
		Where("wave_number LIKE ?", prefix+"%").
		Order("wave_number DESC").
		Limit(1).
		Pluck("wave_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Model(&models.PickingWave{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) UpdateItem(ctx context.Context, id int64, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Model(&models.PickingWaveItem{}).Where("id = ?", id).Updates(updates).Error
}
