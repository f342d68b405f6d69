package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/pkg/db"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/wavepick-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReservationReleaser frees the stock an order holds outside any wave.
type ReservationReleaser interface {
	ReleaseOrderTx(ctx context.Context, tx *gorm.DB, orderID int64) (int, error)
}

// Service defines picking order operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.PickingOrder, error)
	GetOrder(ctx context.Context, tenantID, orderID int64) (*models.PickingOrder, error)
	ListOrders(ctx context.Context, tenantID int64, params pagination.Params, filters ListFilters) (*OrderList, error)
	CancelOrder(ctx context.Context, input CancelOrderInput) (*models.PickingOrder, error)
}

type ServiceParams struct {
	Repo     Repository
	Catalog  catalog.Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Releaser ReservationReleaser
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	tx       txRunner
	outbox   outboxPublisher
	releaser ReservationReleaser
	logg     *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("reservation releaser required")
	}
	return &service{
		repo:     params.Repo,
		catalog:  params.Catalog,
		tx:       params.Tx,
		outbox:   params.Outbox,
		releaser: params.Releaser,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.PickingOrder, error) {
	if input.TenantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}

	productIDs := make([]int64, 0, len(input.Lines))
	seen := make(map[int64]struct{}, len(input.Lines))
	for i, line := range input.Lines {
		if line.ProductID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id is required", i+1))
		}
		if line.RequestedQuantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: requested quantity must be positive", i+1))
		}
		if _, ok := seen[line.ProductID]; !ok {
			seen[line.ProductID] = struct{}{}
			productIDs = append(productIDs, line.ProductID)
		}
	}

	order := &models.PickingOrder{
		TenantID:     input.TenantID,
		OrderNumber:  number,
		CustomerName: input.CustomerName,
		Status:       enums.OrderStatusPending,
	}
	if input.ActorUserID > 0 {
		actor := input.ActorUserID
		order.CreatedBy = &actor
	}
	for _, line := range input.Lines {
		order.Lines = append(order.Lines, models.PickingOrderLine{
			TenantID:          input.TenantID,
			ProductID:         line.ProductID,
			RequestedQuantity: line.RequestedQuantity,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := s.catalog.WithTx(tx).FindProducts(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		found := make(map[int64]models.Product, len(products))
		for _, product := range products {
			found[product.ID] = product
		}
		for _, id := range productIDs {
			product, ok := found[id]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %d not found", id))
			}
			if product.TenantID != input.TenantID {
				return pkgerrors.TenantMismatch("product", id)
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order number %s already exists", number))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, tenantID, orderID int64) (*models.PickingOrder, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.TenantID != tenantID {
		return nil, pkgerrors.TenantMismatch("order", orderID)
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, tenantID int64, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, tenantID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &OrderList{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: rows[limit-1].ID})
	}
	return list, nil
}

// CancelOrder cancels a pending order and frees its reservations. Orders
// already released in a wave are cancelled through the wave.
func (s *service) CancelOrder(ctx context.Context, input CancelOrderInput) (*models.PickingOrder, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.PickingOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByIDs(ctx, []int64{input.OrderID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if len(locked) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order := locked[0]
		if order.TenantID != input.TenantID {
			return pkgerrors.TenantMismatch("order", order.ID)
		}

		switch order.Status {
		case enums.OrderStatusCancelled:
			result = &order
			return nil
		case enums.OrderStatusPending:
		case enums.OrderStatusPicking:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is part of a wave; cancel the wave instead")
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot be cancelled in status %s", order.Status))
		}

		released, err := s.releaser.ReleaseOrderTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		result = &order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(input.ActorUserID, input.TenantID, input.ActorRole),
			Data: payloads.OrderCanceledEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				TenantID:         order.TenantID,
				ReleasedQuantity: released,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": result.ID, "tenant_id": result.TenantID})
		s.logg.Info(logCtx, "picking order cancelled")
	}
	return result, nil
}

func buildActor(userID, tenantID int64, role string) *outbox.ActorRef {
	if userID <= 0 {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, TenantID: tenantID, Role: role}
}
