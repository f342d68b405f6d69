package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/wavepick-backend/internal/reconciler"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
)

const defaultReconcileEvery = 15 * time.Minute

type reservationReconciler interface {
	Reconcile(ctx context.Context, tenantID *int64) (reconciler.Result, error)
}

type ReservationReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler reservationReconciler
	Interval   time.Duration
}

// NewReservationReconcileJob runs the reconciler across all tenants.
func NewReservationReconcileJob(params ReservationReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	every := params.Interval
	if every <= 0 {
		every = defaultReconcileEvery
	}
	return &reservationReconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		every:      every,
	}, nil
}

type reservationReconcileJob struct {
	logg       *logger.Logger
	reconciler reservationReconciler
	every      time.Duration
}

func (j *reservationReconcileJob) Name() string { return "reservation-reconcile" }

func (j *reservationReconcileJob) Every() time.Duration { return j.every }

func (j *reservationReconcileJob) Run(ctx context.Context) error {
	res, err := j.reconciler.Reconcile(ctx, nil)
	if err != nil {
		return fmt.Errorf("reservation reconcile: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"fixed": res.Fixed, "errors": res.Errors})
	if res.Errors > 0 {
		j.logg.Warn(logCtx, "reservation reconcile left positions unresolved")
		return nil
	}
	j.logg.Info(logCtx, "reservation reconcile finished")
	return nil
}
