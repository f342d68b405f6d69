package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/wavepick-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	_, conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestCreateLocationNormalizesCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	location, err := svc.CreateLocation(ctx, CreateLocationInput{
		TenantID:     1,
		Code:         " t01-02-3b ",
		Zone:         "A",
		LocationType: enums.LocationTypeFraction,
	})
	require.NoError(t, err)
	assert.Equal(t, "T01-02-3B", location.Code)

	_, err = svc.CreateLocation(ctx, CreateLocationInput{
		TenantID:     1,
		Code:         "T01-02-3B",
		LocationType: enums.LocationTypeFraction,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCreateLocationRejectsMismatchedShape(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateLocation(context.Background(), CreateLocationInput{
		TenantID:     1,
		Code:         "T01-02-03",
		LocationType: enums.LocationTypeFraction,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestGetProductEnforcesTenant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{TenantID: 1, SKU: "SKU-1", Description: "Dipirona 500mg"})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, 1, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", got.SKU)

	_, err = svc.GetProduct(ctx, 2, product.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTenantMismatch))

	_, err = svc.GetProduct(ctx, 1, product.ID+100)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{TenantID: 1, SKU: "  "})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{SKU: "X"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}
