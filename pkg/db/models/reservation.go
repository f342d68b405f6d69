package models

import "time"

// Reservation claims Quantity units of a position for one order line.
// WaveID and WaveItemID are set once the order is released in a wave.
type Reservation struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID    int64     `gorm:"column:tenant_id;not null" json:"tenant_id"`
	PositionID  int64     `gorm:"column:position_id;not null;index:idx_reservations_position" json:"position_id"`
	ProductID   int64     `gorm:"column:product_id;not null" json:"product_id"`
	OrderID     int64     `gorm:"column:order_id;not null;index:idx_reservations_order" json:"order_id"`
	OrderLineID *int64    `gorm:"column:order_line_id" json:"order_line_id"`
	WaveID      *int64    `gorm:"column:wave_id;index:idx_reservations_wave" json:"wave_id"`
	WaveItemID  *int64    `gorm:"column:wave_item_id;index:idx_reservations_wave_item" json:"wave_item_id"`
	Quantity    int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
