package models

import (
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// WarehouseLocation is a physical pick address such as T01-01-01 or T01-01-1A.
type WarehouseLocation struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID     int64              `gorm:"column:tenant_id;not null;index:idx_locations_tenant_code,unique" json:"tenant_id"`
	Code         string             `gorm:"column:code;not null;index:idx_locations_tenant_code,unique" json:"code"`
	Zone         string             `gorm:"column:zone" json:"zone"`
	LocationType enums.LocationType `gorm:"column:location_type;not null" json:"location_type"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
