package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"gorm.io/gorm"
)

// PositionSeed describes a position inserted by SeedPosition.
type PositionSeed struct {
	TenantID   int64
	ProductID  int64
	LocationID int64
	Batch      string
	Expiry     string // YYYY-MM-DD, empty for undated stock
	Quantity   int
	Reserved   int
	Status     enums.PositionStatus
}

func SeedProduct(t *testing.T, conn *gorm.DB, tenantID int64, sku string) models.Product {
	t.Helper()
	product := models.Product{TenantID: tenantID, SKU: sku, Description: "product " + sku}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func SeedLocation(t *testing.T, conn *gorm.DB, tenantID int64, code string) models.WarehouseLocation {
	t.Helper()
	location := models.WarehouseLocation{TenantID: tenantID, Code: code, Zone: "A", LocationType: enums.LocationTypeWhole}
	if err := conn.Create(&location).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return location
}

func SeedPosition(t *testing.T, conn *gorm.DB, seed PositionSeed) models.InventoryPosition {
	t.Helper()
	position := models.InventoryPosition{
		TenantID:         seed.TenantID,
		ProductID:        seed.ProductID,
		LocationID:       seed.LocationID,
		Quantity:         seed.Quantity,
		ReservedQuantity: seed.Reserved,
		Status:           seed.Status,
	}
	if position.Status == "" {
		position.Status = enums.PositionStatusAvailable
	}
	if seed.Batch != "" {
		batch := seed.Batch
		position.Batch = &batch
	}
	if seed.Expiry != "" {
		expiry := MustDate(t, seed.Expiry)
		position.ExpiryDate = &expiry
	}
	if err := conn.Create(&position).Error; err != nil {
		t.Fatalf("seed position: %v", err)
	}
	return position
}

// SeedOrder inserts a pending order with one line per product/quantity pair.
func SeedOrder(t *testing.T, conn *gorm.DB, tenantID int64, number string, lines ...[2]int64) models.PickingOrder {
	t.Helper()
	order := models.PickingOrder{
		TenantID:    tenantID,
		OrderNumber: number,
		Status:      enums.OrderStatusPending,
	}
	for _, line := range lines {
		order.Lines = append(order.Lines, models.PickingOrderLine{
			TenantID:          tenantID,
			ProductID:         line[0],
			RequestedQuantity: int(line[1]),
		})
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func ReloadPosition(t *testing.T, conn *gorm.DB, id int64) models.InventoryPosition {
	t.Helper()
	var position models.InventoryPosition
	if err := conn.First(&position, id).Error; err != nil {
		t.Fatalf("reload position %d: %v", id, err)
	}
	return position
}

// ReservedSum is the sum of reservation quantities against a position.
func ReservedSum(t *testing.T, conn *gorm.DB, positionID int64) int {
	t.Helper()
	var sum int
	if err := conn.Model(&models.Reservation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("position_id = ?", positionID).
		Scan(&sum).Error; err != nil {
		t.Fatalf("sum reservations: %v", err)
	}
	return sum
}

func MustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

// Code returns a whole location code for index i, e.g. T01-01-03.
func Code(i int) string {
	return fmt.Sprintf("T01-01-%02d", i)
}
