package models

import (
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// InventoryPosition is the stock of one product/batch at one location.
// ReservedQuantity is a cache of the sum of the position's reservations.
type InventoryPosition struct {
	ID               int64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID         int64                `gorm:"column:tenant_id;not null;index:idx_positions_tenant_product" json:"tenant_id"`
	ProductID        int64                `gorm:"column:product_id;not null;index:idx_positions_tenant_product" json:"product_id"`
	LocationID       int64                `gorm:"column:location_id;not null" json:"location_id"`
	Batch            *string              `gorm:"column:batch" json:"batch"`
	ExpiryDate       *time.Time           `gorm:"column:expiry_date" json:"expiry_date"`
	Quantity         int                  `gorm:"column:quantity;not null;default:0" json:"quantity"`
	ReservedQuantity int                  `gorm:"column:reserved_quantity;not null;default:0" json:"reserved_quantity"`
	Status           enums.PositionStatus `gorm:"column:status;not null;default:available" json:"status"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// AvailableQuantity is on-hand minus reserved, floored at zero.
func (p InventoryPosition) AvailableQuantity() int {
	if p.ReservedQuantity >= p.Quantity {
		return 0
	}
	return p.Quantity - p.ReservedQuantity
}

// BatchValue returns the batch or an empty string.
func (p InventoryPosition) BatchValue() string {
	if p.Batch == nil {
		return ""
	}
	return *p.Batch
}
