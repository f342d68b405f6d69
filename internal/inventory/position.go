package inventory

import (
	"strings"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
)

// PositionInput carries the fields of a new inventory position.
type PositionInput struct {
	TenantID         int64
	ProductID        int64
	LocationID       int64
	Batch            *string
	ExpiryDate       *time.Time
	Quantity         int
	ReservedQuantity int
	Status           enums.PositionStatus
}

// NewPosition builds a position, rejecting any input that breaks
// 0 <= reserved <= quantity or lacks an owner.
func NewPosition(in PositionInput) (*models.InventoryPosition, error) {
	switch {
	case in.TenantID <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	case in.ProductID <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	case in.LocationID <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	case in.Quantity < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	case in.ReservedQuantity < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved quantity cannot be negative")
	case in.ReservedQuantity > in.Quantity:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved quantity cannot exceed quantity")
	}

	status := in.Status
	if status == "" {
		status = enums.PositionStatusAvailable
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid position status")
	}

	var batch *string
	if in.Batch != nil {
		if trimmed := strings.TrimSpace(*in.Batch); trimmed != "" {
			batch = &trimmed
		}
	}
	var expiry *time.Time
	if in.ExpiryDate != nil && !in.ExpiryDate.IsZero() {
		value := in.ExpiryDate.UTC()
		expiry = &value
	}

	return &models.InventoryPosition{
		TenantID:         in.TenantID,
		ProductID:        in.ProductID,
		LocationID:       in.LocationID,
		Batch:            batch,
		ExpiryDate:       expiry,
		Quantity:         in.Quantity,
		ReservedQuantity: in.ReservedQuantity,
		Status:           status,
	}, nil
}
