package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/wavepick-backend/pkg/db"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/locationcode"
	"gorm.io/gorm"
)

// Service manages the product and location directories.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, tenantID, productID int64) (*models.Product, error)
	CreateLocation(ctx context.Context, input CreateLocationInput) (*models.WarehouseLocation, error)
	GetLocation(ctx context.Context, tenantID, locationID int64) (*models.WarehouseLocation, error)
}

type CreateProductInput struct {
	TenantID    int64
	SKU         string
	Description string
}

type CreateLocationInput struct {
	TenantID     int64
	Code         string
	Zone         string
	LocationType enums.LocationType
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.TenantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	product := &models.Product{
		TenantID:    input.TenantID,
		SKU:         sku,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %s already exists", sku))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, tenantID, productID int64) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.TenantID != tenantID {
		return nil, pkgerrors.TenantMismatch("product", productID)
	}
	return product, nil
}

func (s *service) CreateLocation(ctx context.Context, input CreateLocationInput) (*models.WarehouseLocation, error) {
	if input.TenantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	code, err := locationcode.Parse(input.Code, input.LocationType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location code")
	}
	location := &models.WarehouseLocation{
		TenantID:     input.TenantID,
		Code:         code.Value,
		Zone:         strings.TrimSpace(input.Zone),
		LocationType: code.Type,
	}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("location %s already exists", code.Value))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create location")
	}
	return location, nil
}

func (s *service) GetLocation(ctx context.Context, tenantID, locationID int64) (*models.WarehouseLocation, error) {
	location, err := s.repo.FindLocation(ctx, locationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location")
	}
	if location.TenantID != tenantID {
		return nil, pkgerrors.TenantMismatch("location", locationID)
	}
	return location, nil
}
