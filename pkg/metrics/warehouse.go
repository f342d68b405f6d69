package metrics

import "github.com/prometheus/client_golang/prometheus"

// Allocation outcomes.
const (
	OutcomeAllocated         = "allocated"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// Pick outcomes.
const (
	OutcomePicked   = "picked"
	OutcomeOverPick = "over_pick"
)

// WarehouseMetrics counts allocation, picking and reconcile activity.
// A nil receiver is a no-op so services can run without a registry.
type WarehouseMetrics struct {
	allocations    *prometheus.CounterVec
	allocatedUnits prometheus.Counter
	releasedUnits  prometheus.Counter
	picks          *prometheus.CounterVec
	pickedUnits    prometheus.Counter
	waves          *prometheus.CounterVec
	reconcileFixed prometheus.Counter
	reconcileErrs  prometheus.Counter
	driftReports   prometheus.Counter
}

// NewWarehouseMetrics registers the warehouse collectors on reg.
func NewWarehouseMetrics(reg prometheus.Registerer) *WarehouseMetrics {
	if reg == nil {
		return nil
	}
	m := &WarehouseMetrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavepick_allocations_total",
			Help: "Allocation attempts per demand line by outcome.",
		}, []string{"outcome"}),
		allocatedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavepick_allocated_units_total",
			Help: "Units reserved against inventory positions.",
		}),
		releasedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavepick_released_units_total",
			Help: "Units returned to available stock by release or cancellation.",
		}),
		picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavepick_pick_confirmations_total",
			Help: "Pick confirmations by outcome.",
		}, []string{"outcome"}),
		pickedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavepick_picked_units_total",
			Help: "Units removed from on-hand stock by confirmed picks.",
		}),
		waves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavepick_wave_transitions_total",
			Help: "Wave lifecycle transitions by resulting status.",
		}, []string{"status"}),
		reconcileFixed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavepick_reconcile_fixed_total",
			Help: "Positions whose reserved quantity was realigned.",
		}),
		reconcileErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavepick_reconcile_errors_total",
			Help: "Positions the reconciler could not realign.",
		}),
		driftReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavepick_drift_reports_total",
			Help: "Consistency violations routed to the reconciler.",
		}),
	}
	reg.MustRegister(
		m.allocations,
		m.allocatedUnits,
		m.releasedUnits,
		m.picks,
		m.pickedUnits,
		m.waves,
		m.reconcileFixed,
		m.reconcileErrs,
		m.driftReports,
	)
	return m
}

func (m *WarehouseMetrics) ObserveAllocation(outcome string, units int) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == OutcomeAllocated && units > 0 {
		m.allocatedUnits.Add(float64(units))
	}
}

func (m *WarehouseMetrics) ObserveRelease(units int) {
	if m == nil || units <= 0 {
		return
	}
	m.releasedUnits.Add(float64(units))
}

func (m *WarehouseMetrics) ObservePick(outcome string, units int) {
	if m == nil {
		return
	}
	m.picks.WithLabelValues(normalizeLabel(outcome)).Inc()
	if units > 0 {
		m.pickedUnits.Add(float64(units))
	}
}

func (m *WarehouseMetrics) ObserveWave(status string) {
	if m == nil {
		return
	}
	m.waves.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *WarehouseMetrics) ObserveReconcile(fixed, errs int) {
	if m == nil {
		return
	}
	if fixed > 0 {
		m.reconcileFixed.Add(float64(fixed))
	}
	if errs > 0 {
		m.reconcileErrs.Add(float64(errs))
	}
}

func (m *WarehouseMetrics) IncDriftReport() {
	if m == nil {
		return
	}
	m.driftReports.Inc()
}
