package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateWave   OutboxAggregateType = "wave"
	AggregateOrder  OutboxAggregateType = "picking_order"
	AggregateTenant OutboxAggregateType = "tenant"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateWave,
	AggregateOrder,
	AggregateTenant,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventWaveCreated            OutboxEventType = "wave_created"
	EventWaveCompleted          OutboxEventType = "wave_completed"
	EventWaveCanceled           OutboxEventType = "wave_canceled"
	EventOrderCanceled          OutboxEventType = "order_canceled"
	EventReservationsReconciled OutboxEventType = "reservations_reconciled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventWaveCreated,
	EventWaveCompleted,
	EventWaveCanceled,
	EventOrderCanceled,
	EventReservationsReconciled,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

