package payloads

import "time"

// WaveCreatedEvent announces a wave released for picking.
type WaveCreatedEvent struct {
	WaveID        int64   `json:"wave_id"`
	WaveNumber    string  `json:"wave_number"`
	TenantID      int64   `json:"tenant_id"`
	OrderIDs      []int64 `json:"order_ids"`
	TotalItems    int     `json:"total_items"`
	TotalQuantity int     `json:"total_quantity"`
}

// WaveCompletedEvent is emitted when the last wave item is picked.
type WaveCompletedEvent struct {
	WaveID      int64     `json:"wave_id"`
	WaveNumber  string    `json:"wave_number"`
	TenantID    int64     `json:"tenant_id"`
	OrderIDs    []int64   `json:"order_ids"`
	PickedBy    *int64    `json:"picked_by,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// WaveCanceledEvent is emitted when a wave is cancelled and its stock freed.
type WaveCanceledEvent struct {
	WaveID           int64   `json:"wave_id"`
	WaveNumber       string  `json:"wave_number"`
	TenantID         int64   `json:"tenant_id"`
	OrderIDs         []int64 `json:"order_ids"`
	ReleasedQuantity int     `json:"released_quantity"`
}

// OrderCanceledEvent is emitted when a pending order is cancelled.
type OrderCanceledEvent struct {
	OrderID          int64  `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	TenantID         int64  `json:"tenant_id"`
	ReleasedQuantity int    `json:"released_quantity"`
}

// ReservationsReconciledEvent reports a reconciler pass that corrected drift.
type ReservationsReconciledEvent struct {
	TenantID    *int64  `json:"tenant_id,omitempty"`
	Fixed       int     `json:"fixed"`
	Errors      int     `json:"errors"`
	PositionIDs []int64 `json:"position_ids"`
}
