package models

import (
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// PickingWave batches orders released for picking together.
type PickingWave struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID      int64             `gorm:"column:tenant_id;not null" json:"tenant_id"`
	WaveNumber    string            `gorm:"column:wave_number;not null;uniqueIndex" json:"wave_number"`
	Status        enums.WaveStatus  `gorm:"column:status;not null;default:pending" json:"status"`
	TotalOrders   int               `gorm:"column:total_orders;not null;default:0" json:"total_orders"`
	TotalItems    int               `gorm:"column:total_items;not null;default:0" json:"total_items"`
	TotalQuantity int               `gorm:"column:total_quantity;not null;default:0" json:"total_quantity"`
	CreatedBy     *int64            `gorm:"column:created_by" json:"created_by"`
	PickedBy      *int64            `gorm:"column:picked_by" json:"picked_by"`
	PickedAt      *time.Time        `gorm:"column:picked_at" json:"picked_at"`
	CancelledAt   *time.Time        `gorm:"column:cancelled_at" json:"cancelled_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Items         []PickingWaveItem `gorm:"foreignKey:WaveID;references:ID" json:"items,omitempty"`
}

// PickingWaveItem aggregates every reservation of a wave that resolves to the
// same product, location and batch, so the shelf is visited once.
type PickingWaveItem struct {
	ID                 int64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WaveID             int64                `gorm:"column:wave_id;not null;index:idx_wave_items_wave" json:"wave_id"`
	TenantID           int64                `gorm:"column:tenant_id;not null" json:"tenant_id"`
	ProductID          int64                `gorm:"column:product_id;not null" json:"product_id"`
	LocationID         int64                `gorm:"column:location_id;not null" json:"location_id"`
	Batch              *string              `gorm:"column:batch" json:"batch"`
	ExpiryDate         *time.Time           `gorm:"column:expiry_date" json:"expiry_date"`
	ProductSKU         string               `gorm:"column:product_sku" json:"product_sku"`
	ProductDescription string               `gorm:"column:product_description" json:"product_description"`
	LocationCode       string               `gorm:"column:location_code" json:"location_code"`
	TotalQuantity      int                  `gorm:"column:total_quantity;not null" json:"total_quantity"`
	PickedQuantity     int                  `gorm:"column:picked_quantity;not null;default:0" json:"picked_quantity"`
	Status             enums.WaveItemStatus `gorm:"column:status;not null;default:pending" json:"status"`
	PickedBy           *int64               `gorm:"column:picked_by" json:"picked_by"`
	PickedAt           *time.Time           `gorm:"column:picked_at" json:"picked_at"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// RemainingQuantity is what is still to be picked for the item.
func (i PickingWaveItem) RemainingQuantity() int {
	return i.TotalQuantity - i.PickedQuantity
}
