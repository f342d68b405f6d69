package enums

import "fmt"

// OrderStatus tracks a picking order through the warehouse.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPicking   OrderStatus = "picking"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPicking,
	OrderStatusPicked,
	OrderStatusShipped,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// WaveStatus tracks a picking wave.
type WaveStatus string

const (
	WaveStatusPending   WaveStatus = "pending"
	WaveStatusPicking   WaveStatus = "picking"
	WaveStatusCompleted WaveStatus = "completed"
	WaveStatusCancelled WaveStatus = "cancelled"
)

var validWaveStatuses = []WaveStatus{
	WaveStatusPending,
	WaveStatusPicking,
	WaveStatusCompleted,
	WaveStatusCancelled,
}

// String implements fmt.Stringer.
func (w WaveStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WaveStatus.
func (w WaveStatus) IsValid() bool {
	for _, candidate := range validWaveStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// WaveItemStatus tracks a consolidated wave pick line.
type WaveItemStatus string

const (
	WaveItemStatusPending WaveItemStatus = "pending"
	WaveItemStatusPicking WaveItemStatus = "picking"
	WaveItemStatusPicked  WaveItemStatus = "picked"
)

var validWaveItemStatuses = []WaveItemStatus{
	WaveItemStatusPending,
	WaveItemStatusPicking,
	WaveItemStatusPicked,
}

// String implements fmt.Stringer.
func (w WaveItemStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WaveItemStatus.
func (w WaveItemStatus) IsValid() bool {
	for _, candidate := range validWaveItemStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

