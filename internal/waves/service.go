// Package waves releases pending orders for picking as one wave, grouping
// their reservations into one item per shelf visit.
package waves

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/angelmondragon/wavepick-backend/internal/allocation"
	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/internal/reservations"
	"github.com/angelmondragon/wavepick-backend/pkg/db"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Allocator reserves and frees stock inside the wave's transaction.
type Allocator interface {
	AllocateTx(ctx context.Context, tx *gorm.DB, line allocation.Line) ([]models.Reservation, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, rows []models.Reservation) (int, error)
}

// PositionLocker locks positions in id order and returns them.
type PositionLocker interface {
	LockPositions(ctx context.Context, tx *gorm.DB, ids []int64) ([]models.InventoryPosition, error)
}

var _ Allocator = (*allocation.Engine)(nil)

// Service defines wave operations.
type Service interface {
	CreateWave(ctx context.Context, input CreateWaveInput) (*models.PickingWave, error)
	GetWave(ctx context.Context, tenantID, waveID int64) (*WaveDetail, error)
	CancelWave(ctx context.Context, input CancelWaveInput) (*models.PickingWave, error)
}

type ServiceParams struct {
	Repo         Repository
	Orders       orders.Repository
	Reservations reservations.Repository
	Catalog      catalog.Repository
	Positions    PositionLocker
	Allocator    Allocator
	Tx           txRunner
	Outbox       outboxPublisher
	Logger       *logger.Logger
	Metrics      *metrics.WarehouseMetrics
	Clock        func() time.Time
}

type service struct {
	repo         Repository
	orders       orders.Repository
	reservations reservations.Repository
	catalog      catalog.Repository
	positions    PositionLocker
	allocator    Allocator
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	metrics      *metrics.WarehouseMetrics
	now          func() time.Time
}

// NewService builds a wave service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("wave repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation repository required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Positions == nil:
		return nil, fmt.Errorf("position locker required")
	case params.Allocator == nil:
		return nil, fmt.Errorf("allocator required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:         params.Repo,
		orders:       params.Orders,
		reservations: params.Reservations,
		catalog:      params.Catalog,
		positions:    params.Positions,
		allocator:    params.Allocator,
		tx:           params.Tx,
		outbox:       params.Outbox,
		logg:         params.Logger,
		metrics:      params.Metrics,
		now:          now,
	}, nil
}

// groupKey identifies one shelf visit.
type groupKey struct {
	productID  int64
	locationID int64
	batch      string
}

type group struct {
	key      groupKey
	position models.InventoryPosition
	ids      []int64
	quantity int
}

// CreateWave allocates whatever the orders still lack, then groups every
// reservation of the orders into wave items. Any failure rolls the whole
// wave back, including reservations made on the way.
func (s *service) CreateWave(ctx context.Context, input CreateWaveInput) (*models.PickingWave, error) {
	if input.TenantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	orderIDs, err := normalizeOrderIDs(input.OrderIDs)
	if err != nil {
		return nil, err
	}

	var (
		result  *models.PickingWave
		created int
		trimmed int
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, created, trimmed = nil, 0, 0

		locked, err := s.orders.WithTx(tx).LockByIDs(ctx, orderIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock orders")
		}
		if err := checkComposition(input.TenantID, orderIDs, locked); err != nil {
			return err
		}

		resRepo := s.reservations.WithTx(tx)
		existing, err := resRepo.ListStandaloneByOrders(ctx, orderIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order reservations")
		}
		kept, surplus := splitSurplus(locked, existing)
		if len(surplus) > 0 {
			freed, err := s.allocator.ReleaseTx(ctx, tx, surplus)
			if err != nil {
				return err
			}
			trimmed = freed
		}
		all := kept
		for _, line := range uncoveredLines(locked, kept) {
			rows, err := s.allocator.AllocateTx(ctx, tx, line)
			if err != nil {
				return err
			}
			created += len(rows)
			all = append(all, rows...)
		}
		if len(all) == 0 {
			return pkgerrors.InvalidWaveComposition("orders have nothing to pick", orderIDs...)
		}

		groups, err := s.groupReservations(ctx, tx, all)
		if err != nil {
			return err
		}

		now := s.now()
		waveRepo := s.repo.WithTx(tx)
		number, err := nextWaveNumber(ctx, waveRepo, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate wave number")
		}
		wave := &models.PickingWave{
			TenantID:    input.TenantID,
			WaveNumber:  number,
			Status:      enums.WaveStatusPending,
			TotalOrders: len(locked),
			TotalItems:  len(groups),
		}
		if input.ActorUserID > 0 {
			actor := input.ActorUserID
			wave.CreatedBy = &actor
		}
		for _, g := range groups {
			wave.TotalQuantity += g.quantity
		}
		if err := waveRepo.Create(ctx, wave); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "wave number taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wave")
		}

		items, walk, err := s.buildItems(ctx, tx, wave, groups)
		if err != nil {
			return err
		}
		if err := waveRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wave items")
		}
		for i, g := range walk {
			if err := resRepo.AttachToWave(ctx, g.ids, wave.ID, items[i].ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach reservations")
			}
		}
		if err := s.orders.WithTx(tx).AssignWave(ctx, orderIDs, wave.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign orders")
		}

		wave.Items = items
		result = wave
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWaveCreated,
			AggregateType: enums.AggregateWave,
			AggregateID:   wave.ID,
			Actor:         buildActor(input.ActorUserID, input.TenantID, input.ActorRole),
			OccurredAt:    now,
			Data: payloads.WaveCreatedEvent{
				WaveID:        wave.ID,
				WaveNumber:    wave.WaveNumber,
				TenantID:      wave.TenantID,
				OrderIDs:      orderIDs,
				TotalItems:    wave.TotalItems,
				TotalQuantity: wave.TotalQuantity,
			},
		})
	})
	if err != nil {
		s.logRejected(ctx, "wave creation rejected", err, map[string]any{"order_ids": orderIDs})
		return nil, err
	}

	s.metrics.ObserveWave(string(enums.WaveStatusPending))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"wave_id":          result.ID,
			"wave_number":      result.WaveNumber,
			"tenant_id":        result.TenantID,
			"orders":           result.TotalOrders,
			"items":            result.TotalItems,
			"new_reservations": created,
			"surplus_released": trimmed,
		})
		s.logg.Info(logCtx, "wave created")
	}
	return result, nil
}

func (s *service) GetWave(ctx context.Context, tenantID, waveID int64) (*WaveDetail, error) {
	wave, err := s.repo.FindByID(ctx, waveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wave not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wave")
	}
	if wave.TenantID != tenantID {
		return nil, pkgerrors.TenantMismatch("wave", waveID)
	}
	waveOrders, err := s.orders.ListByWave(ctx, wave.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wave orders")
	}
	return &WaveDetail{
		Wave:     *wave,
		Orders:   waveOrders,
		Progress: progressOf(wave.Items),
	}, nil
}

// CancelWave frees the wave's outstanding reservations and returns its
// orders to pending. Completed waves cannot be cancelled.
func (s *service) CancelWave(ctx context.Context, input CancelWaveInput) (*models.PickingWave, error) {
	if input.WaveID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wave id required")
	}

	var (
		result   *models.PickingWave
		released int
		changed  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, released, changed = nil, 0, false

		waveRepo := s.repo.WithTx(tx)
		wave, err := waveRepo.LockByID(ctx, input.WaveID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wave not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wave")
		}
		if wave.TenantID != input.TenantID {
			return pkgerrors.TenantMismatch("wave", wave.ID)
		}
		switch wave.Status {
		case enums.WaveStatusCancelled:
			result = wave
			return nil
		case enums.WaveStatusPending, enums.WaveStatusPicking:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("wave cannot be cancelled in status %s", wave.Status))
		}

		rows, err := s.reservations.WithTx(tx).ListByWave(ctx, wave.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wave reservations")
		}
		released, err = s.allocator.ReleaseTx(ctx, tx, rows)
		if err != nil {
			return err
		}

		orderRepo := s.orders.WithTx(tx)
		waveOrders, err := orderRepo.ListByWave(ctx, wave.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wave orders")
		}
		if err := orderRepo.ReleaseWave(ctx, wave.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release wave orders")
		}

		now := s.now()
		if err := waveRepo.Update(ctx, wave.ID, map[string]any{
			"status":       enums.WaveStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wave status")
		}
		wave.Status = enums.WaveStatusCancelled
		wave.CancelledAt = &now
		result = wave
		changed = true

		orderIDs := make([]int64, 0, len(waveOrders))
		for _, order := range waveOrders {
			orderIDs = append(orderIDs, order.ID)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWaveCanceled,
			AggregateType: enums.AggregateWave,
			AggregateID:   wave.ID,
			Actor:         buildActor(input.ActorUserID, input.TenantID, input.ActorRole),
			OccurredAt:    now,
			Data: payloads.WaveCanceledEvent{
				WaveID:           wave.ID,
				WaveNumber:       wave.WaveNumber,
				TenantID:         wave.TenantID,
				OrderIDs:         orderIDs,
				ReleasedQuantity: released,
			},
		})
	})
	if err != nil {
		s.logRejected(ctx, "wave cancellation rejected", err, map[string]any{"wave_id": input.WaveID})
		return nil, err
	}
	if changed {
		s.metrics.ObserveWave(string(enums.WaveStatusCancelled))
		s.metrics.ObserveRelease(released)
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"wave_id": result.ID, "released": released})
			s.logg.Info(logCtx, "wave cancelled")
		}
	}
	return result, nil
}

// groupReservations folds reservations into one group per product, location
// and batch. buildItems puts them in walk order once location codes are known.
func (s *service) groupReservations(ctx context.Context, tx *gorm.DB, rows []models.Reservation) ([]*group, error) {
	positionIDs := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.PositionID]; !ok {
			seen[row.PositionID] = struct{}{}
			positionIDs = append(positionIDs, row.PositionID)
		}
	}
	sort.Slice(positionIDs, func(i, j int) bool { return positionIDs[i] < positionIDs[j] })
	positions, err := s.positions.LockPositions(ctx, tx, positionIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.InventoryPosition, len(positions))
	for _, p := range positions {
		byID[p.ID] = p
	}

	groups := make(map[groupKey]*group)
	ordered := make([]*group, 0)
	for _, row := range rows {
		position, ok := byID[row.PositionID]
		if !ok {
			return nil, pkgerrors.ConsistencyViolation("reservation %d references missing position %d", row.ID, row.PositionID)
		}
		key := groupKey{productID: position.ProductID, locationID: position.LocationID, batch: position.BatchValue()}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, position: position}
			groups[key] = g
			ordered = append(ordered, g)
		}
		g.ids = append(g.ids, row.ID)
		g.quantity += row.Quantity
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].key, ordered[j].key
		if a.locationID != b.locationID {
			return a.locationID < b.locationID
		}
		if a.productID != b.productID {
			return a.productID < b.productID
		}
		return a.batch < b.batch
	})
	return ordered, nil
}

// buildItems turns groups into wave items sorted by location code, product and
// batch. The returned groups follow the same order as the items.
func (s *service) buildItems(ctx context.Context, tx *gorm.DB, wave *models.PickingWave, groups []*group) ([]models.PickingWaveItem, []*group, error) {
	productIDs := make([]int64, 0, len(groups))
	locationIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		productIDs = append(productIDs, g.key.productID)
		locationIDs = append(locationIDs, g.key.locationID)
	}
	catalogRepo := s.catalog.WithTx(tx)
	products, err := catalogRepo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	locations, err := catalogRepo.FindLocations(ctx, locationIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load locations")
	}
	productByID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	locationByID := make(map[int64]models.WarehouseLocation, len(locations))
	for _, l := range locations {
		locationByID[l.ID] = l
	}

	items := make([]models.PickingWaveItem, 0, len(groups))
	walk := make([]*group, len(groups))
	copy(walk, groups)
	for _, g := range walk {
		product := productByID[g.key.productID]
		location := locationByID[g.key.locationID]
		if product.TenantID != 0 && product.TenantID != wave.TenantID {
			return nil, nil, pkgerrors.TenantMismatch("product", product.ID)
		}
		if location.TenantID != 0 && location.TenantID != wave.TenantID {
			return nil, nil, pkgerrors.TenantMismatch("location", location.ID)
		}
		items = append(items, models.PickingWaveItem{
			WaveID:             wave.ID,
			TenantID:           wave.TenantID,
			ProductID:          g.key.productID,
			LocationID:         g.key.locationID,
			Batch:              g.position.Batch,
			ExpiryDate:         g.position.ExpiryDate,
			ProductSKU:         product.SKU,
			ProductDescription: product.Description,
			LocationCode:       location.Code,
			TotalQuantity:      g.quantity,
			Status:             enums.WaveItemStatusPending,
		})
	}
	sort.Sort(walkOrder{items: items, groups: walk})
	return items, walk, nil
}

// walkOrder sorts items and their groups together.
type walkOrder struct {
	items  []models.PickingWaveItem
	groups []*group
}

func (w walkOrder) Len() int { return len(w.items) }

func (w walkOrder) Less(i, j int) bool {
	a, b := w.items[i], w.items[j]
	if a.LocationCode != b.LocationCode {
		return a.LocationCode < b.LocationCode
	}
	if a.ProductID != b.ProductID {
		return a.ProductID < b.ProductID
	}
	return w.groups[i].key.batch < w.groups[j].key.batch
}

func (w walkOrder) Swap(i, j int) {
	w.items[i], w.items[j] = w.items[j], w.items[i]
	w.groups[i], w.groups[j] = w.groups[j], w.groups[i]
}

func (s *service) logRejected(ctx context.Context, msg string, err error, fields map[string]any) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, fields)
	if pkgerrors.HasCode(err, pkgerrors.CodeDependency) || pkgerrors.HasCode(err, pkgerrors.CodeConsistencyViolation) {
		s.logg.Error(logCtx, msg, err)
		return
	}
	s.logg.Warn(s.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), msg)
}

func normalizeOrderIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.InvalidWaveComposition("wave requires at least one order")
	}
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ids must be positive")
		}
		if _, ok := seen[id]; ok {
			return nil, pkgerrors.InvalidWaveComposition(fmt.Sprintf("order %d listed twice", id), id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// checkComposition requires every order to exist, share one tenant with the
// caller and still be pending.
func checkComposition(tenantID int64, ids []int64, locked []models.PickingOrder) error {
	if len(locked) != len(ids) {
		found := make(map[int64]struct{}, len(locked))
		for _, order := range locked {
			found[order.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %d not found", id))
			}
		}
	}

	tenants := make(map[int64]struct{}, 1)
	for _, order := range locked {
		tenants[order.TenantID] = struct{}{}
	}
	if len(tenants) > 1 {
		return pkgerrors.InvalidWaveComposition("orders belong to different tenants", ids...)
	}
	if locked[0].TenantID != tenantID {
		return pkgerrors.TenantMismatch("order", locked[0].ID)
	}

	var notPending []int64
	for _, order := range locked {
		if order.Status != enums.OrderStatusPending {
			notPending = append(notPending, order.ID)
		}
	}
	if len(notPending) > 0 {
		return pkgerrors.InvalidWaveComposition("only pending orders can join a wave", notPending...)
	}
	return nil
}

type orderProduct struct{ orderID, productID int64 }

// splitSurplus keeps, oldest first, the standalone reservations that fit
// within what each order asks for per product. Rows for products the order
// does not request, or beyond its quantity, are returned as surplus.
func splitSurplus(locked []models.PickingOrder, existing []models.Reservation) (kept, surplus []models.Reservation) {
	open := make(map[orderProduct]int)
	for _, order := range locked {
		for productID, qty := range allocation.Demand(order) {
			open[orderProduct{order.ID, productID}] = qty
		}
	}
	for _, row := range existing {
		key := orderProduct{row.OrderID, row.ProductID}
		if row.Quantity <= open[key] {
			open[key] -= row.Quantity
			kept = append(kept, row)
			continue
		}
		surplus = append(surplus, row)
	}
	return kept, surplus
}

// uncoveredLines returns, per order line, the quantity that standalone
// reservations made earlier do not already cover.
func uncoveredLines(locked []models.PickingOrder, existing []models.Reservation) []allocation.Line {
	covered := make(map[orderProduct]int, len(existing))
	for _, row := range existing {
		covered[orderProduct{row.OrderID, row.ProductID}] += row.Quantity
	}

	var lines []allocation.Line
	for _, order := range locked {
		for _, line := range order.Lines {
			key := orderProduct{order.ID, line.ProductID}
			need := line.RequestedQuantity
			take := min(need, covered[key])
			covered[key] -= take
			need -= take
			if need <= 0 {
				continue
			}
			lineID := line.ID
			lines = append(lines, allocation.Line{
				TenantID:    order.TenantID,
				OrderID:     order.ID,
				OrderLineID: &lineID,
				ProductID:   line.ProductID,
				Quantity:    need,
			})
		}
	}
	return lines
}

func progressOf(items []models.PickingWaveItem) Progress {
	p := Progress{TotalItems: len(items)}
	for _, item := range items {
		p.TotalQuantity += item.TotalQuantity
		p.PickedQuantity += item.PickedQuantity
		if item.Status == enums.WaveItemStatusPicked {
			p.CompletedItems++
		}
	}
	if p.TotalQuantity > 0 {
		p.Percent = math.Round(float64(p.PickedQuantity)/float64(p.TotalQuantity)*10000) / 100
	}
	return p
}

func buildActor(userID, tenantID int64, role string) *outbox.ActorRef {
	if userID <= 0 {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, TenantID: tenantID, Role: role}
}
