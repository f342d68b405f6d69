// Package reconciler realigns each position's reserved_quantity with the sum
// of its reservations. The reservations are authoritative; the counter is
// only ever moved towards them.
package reconciler

import (
	"context"
	"fmt"
	"slices"

	"github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/internal/reservations"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox/payloads"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// defaultBatchSize bounds how many position rows one transaction holds locked.
const defaultBatchSize = 25

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Result counts corrected positions and positions that could not be fixed.
type Result struct {
	Fixed  int `json:"fixed"`
	Errors int `json:"errors"`
}

func (r *Result) add(other Result) {
	r.Fixed += other.Fixed
	r.Errors += other.Errors
}

type Params struct {
	Positions    inventory.Repository
	Reservations reservations.Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Logger       *logger.Logger
	Metrics      *metrics.WarehouseMetrics
	BatchSize    int
}

type Reconciler struct {
	positions    inventory.Repository
	reservations reservations.Repository
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	metrics      *metrics.WarehouseMetrics
	batchSize    int
}

func New(params Params) (*Reconciler, error) {
	switch {
	case params.Positions == nil:
		return nil, fmt.Errorf("inventory repository required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Reconciler{
		positions:    params.Positions,
		reservations: params.Reservations,
		tx:           params.Tx,
		outbox:       params.Outbox,
		logg:         params.Logger,
		metrics:      params.Metrics,
		batchSize:    batch,
	}, nil
}

// Reconcile checks every position of the tenant, or of all tenants when
// tenantID is nil. Drift is counted in Result, never raised. Positions in a
// batch that hit a storage failure are also counted in Result.Errors; the
// returned error carries only those failures, for the cron job's failure
// metric and the HTTP complete flag.
func (r *Reconciler) Reconcile(ctx context.Context, tenantID *int64) (Result, error) {
	var (
		total  Result
		errs   error
		after  int64
		fields = map[string]any{"scope": "all"}
	)
	if tenantID != nil {
		fields = map[string]any{"scope": "tenant", "tenant_id": *tenantID}
	}
	logCtx := r.logg.WithFields(ctx, fields)

	for {
		ids, err := r.positions.ListReconcileCandidates(ctx, tenantID, after, r.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list reconcile candidates after %d: %w", after, err))
			break
		}
		if len(ids) == 0 {
			break
		}
		res, err := r.reconcileBatch(logCtx, tenantID, ids)
		total.add(res)
		errs = multierr.Append(errs, err)
		after = ids[len(ids)-1]
		if len(ids) < r.batchSize {
			break
		}
	}

	r.metrics.ObserveReconcile(total.Fixed, total.Errors)
	summary := r.logg.WithFields(logCtx, map[string]any{"fixed": total.Fixed, "errors": total.Errors})
	if errs != nil {
		r.logg.Error(summary, "reservation reconcile incomplete", errs)
	} else {
		r.logg.Info(summary, "reservation reconcile complete")
	}
	return total, errs
}

// ReconcilePositions checks only the given positions.
func (r *Reconciler) ReconcilePositions(ctx context.Context, ids []int64) (Result, error) {
	var (
		total Result
		errs  error
	)
	ids = uniqueSorted(ids)
	for start := 0; start < len(ids); start += r.batchSize {
		end := min(start+r.batchSize, len(ids))
		res, err := r.reconcileBatch(ctx, nil, ids[start:end])
		total.add(res)
		errs = multierr.Append(errs, err)
	}
	r.metrics.ObserveReconcile(total.Fixed, total.Errors)
	return total, errs
}

// reconcileBatch locks the positions, recomputes their sums and rewrites the
// counters that disagree, all in one transaction. Locking the positions
// first keeps the sum stable against concurrent allocations.
func (r *Reconciler) reconcileBatch(ctx context.Context, tenantID *int64, ids []int64) (Result, error) {
	var result Result
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result = Result{}
		posRepo := r.positions.WithTx(tx)
		locked, err := posRepo.LockByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock positions: %w", err)
		}
		sums, err := r.reservations.WithTx(tx).SumByPositions(ctx, ids)
		if err != nil {
			return fmt.Errorf("sum reservations: %w", err)
		}

		var fixedIDs []int64
		for _, position := range locked {
			want := sums[position.ID]
			if want == position.ReservedQuantity {
				continue
			}
			posCtx := r.logg.WithFields(ctx, map[string]any{
				"position_id": position.ID,
				"tenant_id":   position.TenantID,
				"quantity":    position.Quantity,
				"before":      position.ReservedQuantity,
				"after":       want,
			})
			if want > position.Quantity {
				result.Errors++
				r.logg.Warn(posCtx, "reservations exceed on-hand quantity; position left unchanged")
				continue
			}
			ok, err := posRepo.SetReserved(ctx, position.ID, position.ReservedQuantity, want)
			if err != nil {
				return fmt.Errorf("update position %d: %w", position.ID, err)
			}
			if !ok {
				result.Errors++
				r.logg.Warn(posCtx, "reserved quantity changed underneath reconcile; skipped")
				continue
			}
			result.Fixed++
			fixedIDs = append(fixedIDs, position.ID)
			r.logg.Info(posCtx, "reserved quantity corrected")
		}

		if len(fixedIDs) == 0 || r.outbox == nil {
			return nil
		}
		var aggregateID int64
		if tenantID != nil {
			aggregateID = *tenantID
		}
		return r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationsReconciled,
			AggregateType: enums.AggregateTenant,
			AggregateID:   aggregateID,
			Data: payloads.ReservationsReconciledEvent{
				TenantID:    tenantID,
				Fixed:       result.Fixed,
				Errors:      result.Errors,
				PositionIDs: fixedIDs,
			},
		})
	})
	if err != nil {
		return Result{Errors: len(ids)}, err
	}
	return result, nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
