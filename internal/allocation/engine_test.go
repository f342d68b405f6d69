package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/internal/reservations"
	"github.com/angelmondragon/wavepick-backend/pkg/db"
	"github.com/angelmondragon/wavepick-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	engine   *Engine
	conn     *gorm.DB
	product  models.Product
	location models.WarehouseLocation
	order    models.PickingOrder
}

func newFixture(t *testing.T, client *db.Client, conn *gorm.DB) fixture {
	t.Helper()
	ledger, err := inventory.NewLedger(inventory.LedgerParams{
		Repo:    inventory.NewRepository(conn),
		Catalog: catalog.NewRepository(conn),
		Tx:      client,
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	engine, err := NewEngine(Params{
		Ledger:       ledger,
		Reservations: reservations.NewRepository(conn),
		Orders:       orders.NewRepository(conn),
		Tx:           client,
		Logger:       logger.Nop(),
		Metrics:      metrics.NewWarehouseMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	product := dbtest.SeedProduct(t, conn, 1, "SKU-X")
	return fixture{
		engine:   engine,
		conn:     conn,
		product:  product,
		location: dbtest.SeedLocation(t, conn, 1, "T01-01-01"),
		order:    dbtest.SeedOrder(t, conn, 1, "PO-1", [2]int64{product.ID, 100}),
	}
}

func newMemoryFixture(t *testing.T) fixture {
	client, conn := dbtest.Open(t)
	return newFixture(t, client, conn)
}

func (f fixture) position(t *testing.T, expiry string, qty, reserved int) models.InventoryPosition {
	return dbtest.SeedPosition(t, f.conn, dbtest.PositionSeed{
		TenantID:   1,
		ProductID:  f.product.ID,
		LocationID: f.location.ID,
		Expiry:     expiry,
		Quantity:   qty,
		Reserved:   reserved,
	})
}

func (f fixture) line(qty int) Line {
	return Line{TenantID: 1, OrderID: f.order.ID, ProductID: f.product.ID, Quantity: qty}
}

func (f fixture) assertLedgerConsistent(t *testing.T, positions ...models.InventoryPosition) {
	t.Helper()
	for _, p := range positions {
		reloaded := dbtest.ReloadPosition(t, f.conn, p.ID)
		assert.GreaterOrEqual(t, reloaded.ReservedQuantity, 0)
		assert.LessOrEqual(t, reloaded.ReservedQuantity, reloaded.Quantity)
		assert.Equal(t, dbtest.ReservedSum(t, f.conn, p.ID), reloaded.ReservedQuantity, "position %d", p.ID)
	}
}

func TestAllocateSinglePosition(t *testing.T) {
	f := newMemoryFixture(t)
	a := f.position(t, "2026-01-01", 100, 0)

	got, err := f.engine.Allocate(context.Background(), f.line(40))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].PositionID)
	assert.Equal(t, 40, got[0].Quantity)
	assert.Equal(t, 40, dbtest.ReloadPosition(t, f.conn, a.ID).ReservedQuantity)
	f.assertLedgerConsistent(t, a)
}

func TestAllocateConsumesEarliestExpiryFirst(t *testing.T) {
	f := newMemoryFixture(t)
	b := f.position(t, "2026-02-01", 50, 0)
	a := f.position(t, "2026-01-01", 10, 0)

	got, err := f.engine.Allocate(context.Background(), f.line(30))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].PositionID)
	assert.Equal(t, 10, got[0].Quantity)
	assert.Equal(t, b.ID, got[1].PositionID)
	assert.Equal(t, 20, got[1].Quantity)

	assert.Equal(t, 10, dbtest.ReloadPosition(t, f.conn, a.ID).ReservedQuantity)
	assert.Equal(t, 20, dbtest.ReloadPosition(t, f.conn, b.ID).ReservedQuantity)
	f.assertLedgerConsistent(t, a, b)
}

func TestAllocateFEFOAcrossThreeExpiries(t *testing.T) {
	f := newMemoryFixture(t)
	e3 := f.position(t, "2026-03-01", 10, 0)
	undated := f.position(t, "", 10, 0)
	e1 := f.position(t, "2026-01-01", 10, 0)
	e2 := f.position(t, "2026-02-01", 10, 0)

	got, err := f.engine.Allocate(context.Background(), f.line(15))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, e1.ID, got[0].PositionID)
	assert.Equal(t, 10, got[0].Quantity)
	assert.Equal(t, e2.ID, got[1].PositionID)
	assert.Equal(t, 5, got[1].Quantity)
	assert.Zero(t, dbtest.ReloadPosition(t, f.conn, e3.ID).ReservedQuantity)
	assert.Zero(t, dbtest.ReloadPosition(t, f.conn, undated.ID).ReservedQuantity)
}

func TestAllocateInsufficientStockLeavesLedgerUnchanged(t *testing.T) {
	f := newMemoryFixture(t)
	a := f.position(t, "2026-01-01", 3, 0)
	b := f.position(t, "2026-02-01", 10, 8)

	_, err := f.engine.Allocate(context.Background(), f.line(8))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	shortage := pkgerrors.As(err).Details().(pkgerrors.StockShortage)
	assert.Equal(t, 8, shortage.Requested)
	assert.Equal(t, 5, shortage.Available)

	assert.Zero(t, dbtest.ReloadPosition(t, f.conn, a.ID).ReservedQuantity)
	assert.Equal(t, 8, dbtest.ReloadPosition(t, f.conn, b.ID).ReservedQuantity)
	var count int64
	require.NoError(t, f.conn.Model(&models.Reservation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAllocateRejectsForeignOrNonPendingOrders(t *testing.T) {
	f := newMemoryFixture(t)
	f.position(t, "", 100, 0)
	ctx := context.Background()

	line := f.line(1)
	line.TenantID = 2
	_, err := f.engine.Allocate(ctx, line)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTenantMismatch))

	require.NoError(t, f.conn.Model(&models.PickingOrder{}).Where("id = ?", f.order.ID).
		Update("status", enums.OrderStatusPicked).Error)
	_, err = f.engine.Allocate(ctx, f.line(1))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = f.engine.Allocate(ctx, f.line(0))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestAllocateStaysWithinOrderDemand(t *testing.T) {
	f := newMemoryFixture(t)
	a := f.position(t, "", 500, 0)
	other := dbtest.SeedProduct(t, f.conn, 1, "SKU-Y")
	dbtest.SeedPosition(t, f.conn, dbtest.PositionSeed{TenantID: 1, ProductID: other.ID, LocationID: f.location.ID, Quantity: 50})
	ctx := context.Background()

	line := f.line(7)
	line.ProductID = other.ID
	_, err := f.engine.Allocate(ctx, line)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "product not on order: %v", err)

	_, err = f.engine.Allocate(ctx, f.line(101))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "more than requested: %v", err)

	_, err = f.engine.Allocate(ctx, f.line(60))
	require.NoError(t, err)
	_, err = f.engine.Allocate(ctx, f.line(50))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "repeat beyond demand: %v", err)
	exceeded := pkgerrors.As(err).Details().(DemandExceeded)
	assert.Equal(t, DemandExceeded{ProductID: f.product.ID, Demand: 100, Reserved: 60, Requested: 50}, exceeded)

	_, err = f.engine.Allocate(ctx, f.line(40))
	require.NoError(t, err)
	assert.Equal(t, 100, dbtest.ReloadPosition(t, f.conn, a.ID).ReservedQuantity)
	f.assertLedgerConsistent(t, a)
}

func TestAllocateIgnoresOtherTenantsStock(t *testing.T) {
	f := newMemoryFixture(t)
	dbtest.SeedPosition(t, f.conn, dbtest.PositionSeed{
		TenantID: 2, ProductID: f.product.ID, LocationID: f.location.ID, Quantity: 100,
	})

	_, err := f.engine.Allocate(context.Background(), f.line(1))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
}

func TestReleaseReturnsUnits(t *testing.T) {
	f := newMemoryFixture(t)
	a := f.position(t, "", 20, 0)
	ctx := context.Background()

	got, err := f.engine.Allocate(ctx, f.line(12))
	require.NoError(t, err)

	require.NoError(t, f.engine.Release(ctx, 1, got[0].ID))
	assert.Zero(t, dbtest.ReloadPosition(t, f.conn, a.ID).ReservedQuantity)
	f.assertLedgerConsistent(t, a)

	err = f.engine.Release(ctx, 1, got[0].ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestReleaseGuards(t *testing.T) {
	f := newMemoryFixture(t)
	f.position(t, "", 20, 0)
	ctx := context.Background()

	got, err := f.engine.Allocate(ctx, f.line(5))
	require.NoError(t, err)

	err = f.engine.Release(ctx, 2, got[0].ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTenantMismatch))

	require.NoError(t, f.conn.Model(&models.Reservation{}).Where("id = ?", got[0].ID).Update("wave_id", 3).Error)
	err = f.engine.Release(ctx, 1, got[0].ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestReleaseOrderTxOnlyTouchesStandaloneReservations(t *testing.T) {
	client, conn := dbtest.Open(t)
	f := newFixture(t, client, conn)
	a := f.position(t, "", 50, 0)
	ctx := context.Background()

	first, err := f.engine.Allocate(ctx, f.line(10))
	require.NoError(t, err)
	_, err = f.engine.Allocate(ctx, f.line(5))
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Reservation{}).Where("id = ?", first[0].ID).Update("wave_id", 9).Error)

	var released int
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		released, err = f.engine.ReleaseOrderTx(ctx, tx, f.order.ID)
		return err
	}))
	assert.Equal(t, 5, released)
	assert.Equal(t, 10, dbtest.ReloadPosition(t, conn, a.ID).ReservedQuantity)
	f.assertLedgerConsistent(t, a)
}

func TestConcurrentAllocationsNeverOvercommit(t *testing.T) {
	client, conn := dbtest.OpenFile(t)
	f := newFixture(t, client, conn)
	a := f.position(t, "2026-01-01", 100, 0)
	ctx := context.Background()

	second := dbtest.SeedOrder(t, conn, 1, "PO-2", [2]int64{f.product.ID, 100})
	orderIDs := []int64{f.order.ID, second.ID}

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			line := f.line(60)
			line.OrderID = orderIDs[i]
			_, results[i] = f.engine.Allocate(ctx, line)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock), "unexpected error %v", err)
		shortage := pkgerrors.As(err).Details().(pkgerrors.StockShortage)
		assert.Equal(t, 60, shortage.Requested)
		assert.Equal(t, 40, shortage.Available)
	}
	assert.Equal(t, 1, succeeded)

	reloaded := dbtest.ReloadPosition(t, conn, a.ID)
	assert.Equal(t, 60, reloaded.ReservedQuantity)
	f.assertLedgerConsistent(t, a)
}
