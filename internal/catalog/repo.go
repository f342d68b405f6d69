package catalog

import (
	"context"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists products and warehouse locations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	FindProducts(ctx context.Context, ids []int64) ([]models.Product, error)
	CreateLocation(ctx context.Context, location *models.WarehouseLocation) error
	FindLocation(ctx context.Context, id int64) (*models.WarehouseLocation, error)
	FindLocations(ctx context.Context, ids []int64) ([]models.WarehouseLocation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProducts(ctx context.Context, ids []int64) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *repository) CreateLocation(ctx context.Context, location *models.WarehouseLocation) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *repository) FindLocation(ctx context.Context, id int64) (*models.WarehouseLocation, error) {
	var location models.WarehouseLocation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) FindLocations(ctx context.Context, ids []int64) ([]models.WarehouseLocation, error) {
	var locations []models.WarehouseLocation
	if len(ids) == 0 {
		return locations, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&locations).Error
	return locations, err
}
