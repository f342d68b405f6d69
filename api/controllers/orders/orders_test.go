package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	internalorders "github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	createFn func(ctx context.Context, input internalorders.CreateOrderInput) (*models.PickingOrder, error)
	getFn    func(ctx context.Context, tenantID, orderID int64) (*models.PickingOrder, error)
	listFn   func(ctx context.Context, tenantID int64, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	cancelFn func(ctx context.Context, input internalorders.CancelOrderInput) (*models.PickingOrder, error)
}

func (s stubService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.PickingOrder, error) {
	return s.createFn(ctx, input)
}

func (s stubService) GetOrder(ctx context.Context, tenantID, orderID int64) (*models.PickingOrder, error) {
	return s.getFn(ctx, tenantID, orderID)
}

func (s stubService) ListOrders(ctx context.Context, tenantID int64, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	return s.listFn(ctx, tenantID, params, filters)
}

func (s stubService) CancelOrder(ctx context.Context, input internalorders.CancelOrderInput) (*models.PickingOrder, error) {
	return s.cancelFn(ctx, input)
}

func authed(req *http.Request) *http.Request {
	ctx := middleware.WithIdentity(req.Context(), middleware.Identity{TenantID: 7, UserID: 3, Role: enums.OperatorRoleSupervisor})
	return req.WithContext(ctx)
}

func withParam(req *http.Request, key string, value int64) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, strconv.FormatInt(value, 10))
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateOrder(t *testing.T) {
	svc := stubService{
		createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.PickingOrder, error) {
			assert.Equal(t, int64(7), input.TenantID)
			assert.Equal(t, int64(3), input.ActorUserID)
			assert.Equal(t, "SO-1001", input.OrderNumber)
			require.Len(t, input.Lines, 2)
			assert.Equal(t, 4, input.Lines[1].RequestedQuantity)
			return &models.PickingOrder{ID: 11, TenantID: 7, OrderNumber: input.OrderNumber, Status: enums.OrderStatusPending}, nil
		},
	}

	body := `{"order_number":" so-1001 ","lines":[{"product_id":1,"quantity":2},{"product_id":2,"quantity":4}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var envelope struct {
		Data models.PickingOrder `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, int64(11), envelope.Data.ID)
}

func TestCreateOrderRejectsBadLines(t *testing.T) {
	svc := stubService{
		createFn: func(context.Context, internalorders.CreateOrderInput) (*models.PickingOrder, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}

	body := `{"order_number":"SO-1","lines":[{"product_id":1,"quantity":0}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "lines[0].quantity")
}

func TestCreateOrderRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(stubService{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListOrdersParsesFilters(t *testing.T) {
	svc := stubService{
		listFn: func(ctx context.Context, tenantID int64, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
			assert.Equal(t, int64(7), tenantID)
			assert.Equal(t, 10, params.Limit)
			assert.Equal(t, "abc", params.Cursor)
			require.NotNil(t, filters.Status)
			assert.Equal(t, enums.OrderStatusPicking, *filters.Status)
			require.NotNil(t, filters.WaveID)
			assert.Equal(t, int64(5), *filters.WaveID)
			return &internalorders.OrderList{Orders: []models.PickingOrder{{ID: 1}}, NextCursor: "next"}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10&cursor=abc&status=picking&wave_id=5", nil))
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"next"`)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil))
	resp := httptest.NewRecorder()
	List(stubService{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetOrderMapsTenantMismatch(t *testing.T) {
	svc := stubService{
		getFn: func(ctx context.Context, tenantID, orderID int64) (*models.PickingOrder, error) {
			assert.Equal(t, int64(42), orderID)
			return nil, pkgerrors.TenantMismatch("order", orderID)
		},
	}

	req := withParam(authed(httptest.NewRequest(http.MethodGet, "/", nil)), "orderId", 42)
	resp := httptest.NewRecorder()
	Get(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCancelOrderPassesActor(t *testing.T) {
	svc := stubService{
		cancelFn: func(ctx context.Context, input internalorders.CancelOrderInput) (*models.PickingOrder, error) {
			assert.Equal(t, int64(9), input.OrderID)
			assert.Equal(t, "supervisor", input.ActorRole)
			return &models.PickingOrder{ID: 9, Status: enums.OrderStatusCancelled}, nil
		},
	}

	req := withParam(authed(httptest.NewRequest(http.MethodPost, "/", nil)), "orderId", 9)
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"cancelled"`)
}
