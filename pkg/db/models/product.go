package models

import "time"

// Product is a tenant-owned SKU.
type Product struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID    int64     `gorm:"column:tenant_id;not null;index:idx_products_tenant_sku,unique" json:"tenant_id"`
	SKU         string    `gorm:"column:sku;not null;index:idx_products_tenant_sku,unique" json:"sku"`
	Description string    `gorm:"column:description;not null" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
