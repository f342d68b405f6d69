package models

import (
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// StockMovement is the append-only record of a physical quantity change.
type StockMovement struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID       int64              `gorm:"column:tenant_id;not null" json:"tenant_id"`
	ProductID      int64              `gorm:"column:product_id;not null" json:"product_id"`
	PositionID     int64              `gorm:"column:position_id;not null" json:"position_id"`
	FromLocationID *int64             `gorm:"column:from_location_id" json:"from_location_id"`
	ToLocationID   *int64             `gorm:"column:to_location_id" json:"to_location_id"`
	Batch          *string            `gorm:"column:batch" json:"batch"`
	Quantity       int                `gorm:"column:quantity;not null" json:"quantity"`
	MovementType   enums.MovementType `gorm:"column:movement_type;not null" json:"movement_type"`
	ReferenceType  string             `gorm:"column:reference_type" json:"reference_type"`
	ReferenceID    *int64             `gorm:"column:reference_id" json:"reference_id"`
	PerformedBy    *int64             `gorm:"column:performed_by" json:"performed_by"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
