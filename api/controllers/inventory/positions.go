package inventory

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/api/responses"
	"github.com/angelmondragon/wavepick-backend/api/validators"
	internalinventory "github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

// Ledger is the part of the inventory ledger exposed over HTTP.
type Ledger interface {
	ReceiveStock(ctx context.Context, input internalinventory.ReceiveInput) (*models.InventoryPosition, error)
	GetAvailable(ctx context.Context, tenantID, productID int64) ([]models.InventoryPosition, error)
}

var _ Ledger = (*internalinventory.Ledger)(nil)

type receiveRequest struct {
	ProductID  int64   `json:"product_id" validate:"required,gt=0"`
	LocationID int64   `json:"location_id" validate:"required,gt=0"`
	Batch      *string `json:"batch,omitempty" validate:"omitempty,max=64"`
	// ExpiryDate is a calendar date, YYYY-MM-DD.
	ExpiryDate *string `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	Status     string  `json:"status,omitempty" validate:"omitempty,oneof=available quarantine blocked damaged expired"`
}

type availableResponse struct {
	ProductID int64                      `json:"product_id"`
	Available int                        `json:"available"`
	Positions []models.InventoryPosition `json:"positions"`
}

// Receive books a new position with on-hand stock.
func Receive(ledger Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req receiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, _ := middleware.IdentityFromContext(r.Context())

		input := internalinventory.ReceiveInput{
			PositionInput: internalinventory.PositionInput{
				TenantID:   id.TenantID,
				ProductID:  req.ProductID,
				LocationID: req.LocationID,
				Quantity:   req.Quantity,
				Status:     enums.PositionStatus(req.Status),
			},
		}
		if req.Batch != nil {
			batch := validators.SanitizeCode(*req.Batch, 64)
			input.Batch = &batch
		}
		if req.ExpiryDate != nil {
			// datetime validation already accepted the layout
			expiry, _ := time.Parse(time.DateOnly, *req.ExpiryDate)
			input.ExpiryDate = &expiry
		}
		if id.UserID > 0 {
			performedBy := id.UserID
			input.PerformedBy = &performedBy
		}

		position, err := ledger.ReceiveStock(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, position)
	}
}

// Available lists a product's allocatable positions in FEFO order.
func Available(ledger Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		positions, err := ledger.GetAvailable(r.Context(), middleware.TenantIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total := 0
		for _, position := range positions {
			total += position.AvailableQuantity()
		}
		responses.WriteSuccess(w, availableResponse{
			ProductID: productID,
			Available: total,
			Positions: positions,
		})
	}
}
