package orders

import (
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// OrderLineInput is one requested product on a new order.
type OrderLineInput struct {
	ProductID         int64
	RequestedQuantity int
}

// CreateOrderInput carries a new picking order.
type CreateOrderInput struct {
	TenantID     int64
	ActorUserID  int64
	OrderNumber  string
	CustomerName *string
	Lines        []OrderLineInput
}

// CancelOrderInput identifies the order to cancel and who asked.
type CancelOrderInput struct {
	TenantID    int64
	OrderID     int64
	ActorUserID int64
	ActorRole   string
}

// ListFilters narrow the order list.
type ListFilters struct {
	Status *enums.OrderStatus
	WaveID *int64
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.PickingOrder `json:"orders"`
	NextCursor string                `json:"next_cursor,omitempty"`
}
