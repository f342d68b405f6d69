package models

import (
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// PickingOrder is customer demand to be picked from the warehouse.
type PickingOrder struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID     int64              `gorm:"column:tenant_id;not null;index:idx_orders_tenant_number,unique" json:"tenant_id"`
	OrderNumber  string             `gorm:"column:order_number;not null;index:idx_orders_tenant_number,unique" json:"order_number"`
	CustomerName *string            `gorm:"column:customer_name" json:"customer_name"`
	Status       enums.OrderStatus  `gorm:"column:status;not null;default:pending" json:"status"`
	WaveID       *int64             `gorm:"column:wave_id;index:idx_orders_wave" json:"wave_id"`
	CreatedBy    *int64             `gorm:"column:created_by" json:"created_by"`
	PickedBy     *int64             `gorm:"column:picked_by" json:"picked_by"`
	PickedAt     *time.Time         `gorm:"column:picked_at" json:"picked_at"`
	CancelledAt  *time.Time         `gorm:"column:cancelled_at" json:"cancelled_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Lines        []PickingOrderLine `gorm:"foreignKey:OrderID;references:ID" json:"lines,omitempty"`
}

// PickingOrderLine is one requested product on an order.
type PickingOrderLine struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID           int64     `gorm:"column:order_id;not null;index:idx_order_lines_order" json:"order_id"`
	TenantID          int64     `gorm:"column:tenant_id;not null" json:"tenant_id"`
	ProductID         int64     `gorm:"column:product_id;not null" json:"product_id"`
	RequestedQuantity int       `gorm:"column:requested_quantity;not null" json:"requested_quantity"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
