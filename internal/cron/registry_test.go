package cron

import (
	"testing"
	"time"
)

func TestRegistryKeepsJobOrderAndSkipsNil(t *testing.T) {
	reconcile := &periodicJob{testJob{name: "reservation-reconcile", every: 15 * time.Minute}}
	retention := &testJob{name: "outbox-retention"}
	registry := NewRegistry(reconcile, nil)
	registry.Register(retention)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "reservation-reconcile" || jobs[1].Name() != "outbox-retention" {
		t.Fatalf("jobs out of registration order: %s, %s", jobs[0].Name(), jobs[1].Name())
	}

	jobs[1] = nil
	if registry.Jobs()[1] == nil {
		t.Fatalf("Jobs must return a copy")
	}
}

func TestDueHonoursPeriodicInterval(t *testing.T) {
	now := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
	reconcile := &periodicJob{testJob{name: "reservation-reconcile", every: 15 * time.Minute}}
	retention := &testJob{name: "outbox-retention"}

	cases := []struct {
		name string
		job  Job
		last time.Time
		want bool
	}{
		{"first run", reconcile, time.Time{}, true},
		{"inside interval", reconcile, now.Add(-5 * time.Minute), false},
		{"interval elapsed", reconcile, now.Add(-15 * time.Minute), true},
		{"plain job every cycle", retention, now.Add(-time.Second), true},
	}
	for _, tc := range cases {
		if got := due(tc.job, tc.last, now); got != tc.want {
			t.Fatalf("%s: due=%v want %v", tc.name, got, tc.want)
		}
	}
}
