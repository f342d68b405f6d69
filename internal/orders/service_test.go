package orders

import (
	"context"
	"testing"

	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
	"github.com/angelmondragon/wavepick-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubReleaser struct {
	released []int64
	units    int
	err      error
}

func (s *stubReleaser) ReleaseOrderTx(ctx context.Context, tx *gorm.DB, orderID int64) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.released = append(s.released, orderID)
	return s.units, nil
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type orderFixture struct {
	svc      Service
	conn     *gorm.DB
	releaser *stubReleaser
	outbox   *recordingOutbox
	product  models.Product
}

func newOrderFixture(t *testing.T) orderFixture {
	t.Helper()
	client, conn := dbtest.Open(t)
	releaser := &stubReleaser{units: 7}
	box := &recordingOutbox{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Catalog:  catalog.NewRepository(conn),
		Tx:       client,
		Outbox:   box,
		Releaser: releaser,
	})
	require.NoError(t, err)
	return orderFixture{
		svc:      svc,
		conn:     conn,
		releaser: releaser,
		outbox:   box,
		product:  dbtest.SeedProduct(t, conn, 1, "SKU-1"),
	}
}

func TestCreateOrderPersistsLines(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		TenantID:    1,
		ActorUserID: 3,
		OrderNumber: " PO-1 ",
		Lines: []OrderLineInput{
			{ProductID: f.product.ID, RequestedQuantity: 5},
			{ProductID: f.product.ID, RequestedQuantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-1", order.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, order.Status)

	loaded, err := f.svc.GetOrder(ctx, 1, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.Equal(t, 5, loaded.Lines[0].RequestedQuantity)
	assert.Equal(t, int64(3), *loaded.CreatedBy)

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		TenantID:    1,
		OrderNumber: "PO-1",
		Lines:       []OrderLineInput{{ProductID: f.product.ID, RequestedQuantity: 1}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)
	foreign := dbtest.SeedProduct(t, f.conn, 2, "SKU-X")
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateOrderInput
		code  pkgerrors.Code
	}{
		{"no lines", CreateOrderInput{TenantID: 1, OrderNumber: "A"}, pkgerrors.CodeValidation},
		{"zero quantity", CreateOrderInput{TenantID: 1, OrderNumber: "A", Lines: []OrderLineInput{{ProductID: f.product.ID}}}, pkgerrors.CodeValidation},
		{"unknown product", CreateOrderInput{TenantID: 1, OrderNumber: "A", Lines: []OrderLineInput{{ProductID: 999, RequestedQuantity: 1}}}, pkgerrors.CodeValidation},
		{"foreign product", CreateOrderInput{TenantID: 1, OrderNumber: "A", Lines: []OrderLineInput{{ProductID: foreign.ID, RequestedQuantity: 1}}}, pkgerrors.CodeTenantMismatch},
		{"no tenant", CreateOrderInput{OrderNumber: "A", Lines: []OrderLineInput{{ProductID: f.product.ID, RequestedQuantity: 1}}}, pkgerrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(ctx, tc.input)
			assert.True(t, pkgerrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestCancelOrderReleasesReservations(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, f.conn, 1, "PO-9", [2]int64{f.product.ID, 4})

	cancelled, err := f.svc.CancelOrder(ctx, CancelOrderInput{TenantID: 1, OrderID: order.ID, ActorUserID: 8})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, []int64{order.ID}, f.releaser.released)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventOrderCanceled, f.outbox.events[0].EventType)
	assert.Equal(t, order.ID, f.outbox.events[0].AggregateID)

	again, err := f.svc.CancelOrder(ctx, CancelOrderInput{TenantID: 1, OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, again.Status)
	assert.Len(t, f.releaser.released, 1)
	assert.Len(t, f.outbox.events, 1)
}

func TestCancelOrderGuards(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, f.conn, 1, "PO-10", [2]int64{f.product.ID, 4})

	_, err := f.svc.CancelOrder(ctx, CancelOrderInput{TenantID: 2, OrderID: order.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTenantMismatch))

	require.NoError(t, f.conn.Model(&models.PickingOrder{}).Where("id = ?", order.ID).
		Updates(map[string]any{"status": enums.OrderStatusPicking, "wave_id": 1}).Error)
	_, err = f.svc.CancelOrder(ctx, CancelOrderInput{TenantID: 1, OrderID: order.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.CancelOrder(ctx, CancelOrderInput{TenantID: 1, OrderID: 12345})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.releaser.released)
}

func TestListOrdersPaginates(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	for _, number := range []string{"PO-1", "PO-2", "PO-3"} {
		dbtest.SeedOrder(t, f.conn, 1, number, [2]int64{f.product.ID, 1})
	}
	dbtest.SeedOrder(t, f.conn, 2, "PO-OTHER", [2]int64{f.product.ID, 1})

	page, err := f.svc.ListOrders(ctx, 1, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "PO-3", page.Orders[0].OrderNumber)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.ListOrders(ctx, 1, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, "PO-1", next.Orders[0].OrderNumber)
	assert.Empty(t, next.NextCursor)

	_, err = f.svc.ListOrders(ctx, 1, pagination.Params{Cursor: "???"}, ListFilters{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
