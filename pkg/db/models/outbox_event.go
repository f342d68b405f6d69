package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

// OutboxEvent represents an append-only event emitted via the outbox pattern.
type OutboxEvent struct {
	ID            int64                     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null" json:"event_type"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null" json:"aggregate_type"`
	AggregateID   int64                     `gorm:"column:aggregate_id;not null" json:"aggregate_id"`
	Payload       json.RawMessage           `gorm:"column:payload;not null" json:"payload"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	PublishedAt   *time.Time                `gorm:"column:published_at" json:"published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	LastError     *string                   `gorm:"column:last_error" json:"last_error"`
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Product{},
		&WarehouseLocation{},
		&InventoryPosition{},
		&PickingOrder{},
		&PickingOrderLine{},
		&PickingWave{},
		&PickingWaveItem{},
		&Reservation{},
		&StockMovement{},
		&OutboxEvent{},
	}
}
