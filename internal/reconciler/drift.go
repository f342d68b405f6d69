package reconciler

import (
	"context"
	"slices"

	"github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
)

const (
	defaultQueueSize = 256
	maxDrainBatch    = 64
)

var _ inventory.DriftReporter = (*DriftQueue)(nil)

type positionReconciler interface {
	ReconcilePositions(ctx context.Context, ids []int64) (Result, error)
}

// DriftQueue collects positions the ledger caught out of line and hands them
// to the reconciler from a background worker. Report never blocks a request:
// when the queue is full the position is dropped and left for the next
// scheduled run.
type DriftQueue struct {
	ch         chan int64
	reconciler positionReconciler
	logg       *logger.Logger
	metrics    *metrics.WarehouseMetrics
}

func NewDriftQueue(reconciler positionReconciler, size int, logg *logger.Logger, m *metrics.WarehouseMetrics) *DriftQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &DriftQueue{
		ch:         make(chan int64, size),
		reconciler: reconciler,
		logg:       logg,
		metrics:    m,
	}
}

// Report implements inventory.DriftReporter.
func (q *DriftQueue) Report(positionID int64) {
	q.metrics.IncDriftReport()
	select {
	case q.ch <- positionID:
	default:
		if q.logg != nil {
			ctx := q.logg.WithField(context.Background(), "position_id", positionID)
			q.logg.Warn(ctx, "drift queue full; position left for scheduled reconcile")
		}
	}
}

// Run drains the queue until ctx is done, reconciling reported positions in
// small batches.
func (q *DriftQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-q.ch:
			batch := q.drain([]int64{id})
			res, err := q.reconciler.ReconcilePositions(ctx, batch)
			if q.logg == nil {
				continue
			}
			logCtx := q.logg.WithFields(ctx, map[string]any{
				"positions": batch,
				"fixed":     res.Fixed,
				"errors":    res.Errors,
			})
			if err != nil {
				q.logg.Error(logCtx, "drift reconcile failed", err)
				continue
			}
			q.logg.Info(logCtx, "drift reconciled")
		}
	}
}

func (q *DriftQueue) drain(batch []int64) []int64 {
	for len(batch) < maxDrainBatch {
		select {
		case id := <-q.ch:
			if !slices.Contains(batch, id) {
				batch = append(batch, id)
			}
		default:
			return batch
		}
	}
	return batch
}
