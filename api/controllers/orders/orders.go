package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/api/responses"
	"github.com/angelmondragon/wavepick-backend/api/validators"
	internalorders "github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/pagination"
)

type createLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	OrderNumber  string              `json:"order_number" validate:"required,max=64"`
	CustomerName *string             `json:"customer_name,omitempty" validate:"omitempty,max=255"`
	Lines        []createLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// Create registers a pending picking order for the caller's tenant.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			TenantID:    id.TenantID,
			ActorUserID: id.UserID,
			OrderNumber: validators.SanitizeCode(req.OrderNumber, 64),
		}
		if req.CustomerName != nil {
			name := validators.SanitizeString(*req.CustomerName, 255)
			input.CustomerName = &name
		}
		for _, line := range req.Lines {
			input.Lines = append(input.Lines, internalorders.OrderLineInput{
				ProductID:         line.ProductID,
				RequestedQuantity: line.Quantity,
			})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List pages through the tenant's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters internalorders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if filters.WaveID, err = validators.ParseQueryID(r, "wave_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), tenantID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Get returns one order with its lines.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), middleware.TenantIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel cancels a pending order and frees its reservations.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, _ := middleware.IdentityFromContext(r.Context())
		order, err := svc.CancelOrder(r.Context(), internalorders.CancelOrderInput{
			TenantID:    id.TenantID,
			OrderID:     orderID,
			ActorUserID: id.UserID,
			ActorRole:   string(id.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
