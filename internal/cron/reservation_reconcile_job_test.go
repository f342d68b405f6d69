package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/wavepick-backend/internal/reconciler"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

type fakeReconciler struct {
	res     reconciler.Result
	err     error
	tenants []*int64
}

func (f *fakeReconciler) Reconcile(ctx context.Context, tenantID *int64) (reconciler.Result, error) {
	f.tenants = append(f.tenants, tenantID)
	return f.res, f.err
}

func TestReservationReconcileJobCoversAllTenants(t *testing.T) {
	fake := &fakeReconciler{res: reconciler.Result{Fixed: 2, Errors: 1}}
	job, err := NewReservationReconcileJob(ReservationReconcileJobParams{Logger: logger.Nop(), Reconciler: fake, Interval: 5 * time.Minute})
	if err != nil {
		t.Fatalf("NewReservationReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.tenants) != 1 || fake.tenants[0] != nil {
		t.Fatalf("expected a single all-tenant run, got %v", fake.tenants)
	}
	periodic, ok := job.(Periodic)
	if !ok || periodic.Every() != 5*time.Minute {
		t.Fatalf("expected 5m cadence")
	}
}

func TestReservationReconcileJobSurfacesStorageFailures(t *testing.T) {
	fake := &fakeReconciler{err: errors.New("db down")}
	job, err := NewReservationReconcileJob(ReservationReconcileJobParams{Logger: logger.Nop(), Reconciler: fake})
	if err != nil {
		t.Fatalf("NewReservationReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
