package allocations

import (
	"context"
	"net/http"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/api/responses"
	"github.com/angelmondragon/wavepick-backend/api/validators"
	"github.com/angelmondragon/wavepick-backend/internal/allocation"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

// Allocator reserves and frees stock for single order lines.
type Allocator interface {
	Allocate(ctx context.Context, line allocation.Line) ([]models.Reservation, error)
	Release(ctx context.Context, tenantID, reservationID int64) error
}

var _ Allocator = (*allocation.Engine)(nil)

type allocateRequest struct {
	OrderID     int64  `json:"order_id" validate:"required,gt=0"`
	OrderLineID *int64 `json:"order_line_id,omitempty" validate:"omitempty,gt=0"`
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}

type allocateResponse struct {
	Reservations []models.Reservation `json:"reservations"`
	Quantity     int                  `json:"quantity"`
}

// Allocate reserves stock FEFO for one order line. It succeeds in full or
// not at all.
func Allocate(svc Allocator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req allocateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservations, err := svc.Allocate(r.Context(), allocation.Line{
			TenantID:    middleware.TenantIDFromContext(r.Context()),
			OrderID:     req.OrderID,
			OrderLineID: req.OrderLineID,
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total := 0
		for _, reservation := range reservations {
			total += reservation.Quantity
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, allocateResponse{Reservations: reservations, Quantity: total})
	}
}

// Release frees a standalone reservation.
func Release(svc Allocator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := validators.ParsePathID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Release(r.Context(), middleware.TenantIDFromContext(r.Context()), reservationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
