package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/wavepick-backend/api/controllers"
	"github.com/angelmondragon/wavepick-backend/api/controllers/allocations"
	catalogcontrollers "github.com/angelmondragon/wavepick-backend/api/controllers/catalog"
	inventorycontrollers "github.com/angelmondragon/wavepick-backend/api/controllers/inventory"
	ordercontrollers "github.com/angelmondragon/wavepick-backend/api/controllers/orders"
	"github.com/angelmondragon/wavepick-backend/api/controllers/reconcile"
	wavecontrollers "github.com/angelmondragon/wavepick-backend/api/controllers/waves"
	"github.com/angelmondragon/wavepick-backend/api/middleware"
	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/internal/picking"
	"github.com/angelmondragon/wavepick-backend/internal/waves"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/wavepick-backend/pkg/redis"
)

// Store backs request idempotency and write rate limiting.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services is everything the HTTP surface calls into.
type Services struct {
	Catalog    catalog.Service
	Orders     orders.Service
	Positions  inventorycontrollers.Ledger
	Allocator  allocations.Allocator
	Waves      waves.Service
	Picking    picking.Service
	Reconciler reconcile.Runner
}

// Probes are the dependencies checked by /health/ready. Leave a field nil to
// report it as skipped.
type Probes map[string]controllers.Pinger

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store Store,
	gatherer prometheus.Gatherer,
	probes Probes,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, probes))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	writes := middleware.NewRateLimitPolicy("writes", cfg.RateLimit.Window, cfg.RateLimit.Limit)
	supervisors := middleware.RequireRole(logg, enums.OperatorRoleSupervisor, enums.OperatorRoleAdmin, enums.OperatorRoleSystem)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(writes, store, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/products", func(r chi.Router) {
			r.With(supervisors).Post("/", catalogcontrollers.CreateProduct(svc.Catalog, logg))
			r.Get("/{productId}", catalogcontrollers.GetProduct(svc.Catalog, logg))
			r.Get("/{productId}/availability", inventorycontrollers.Available(svc.Positions, logg))
		})
		r.Route("/locations", func(r chi.Router) {
			r.With(supervisors).Post("/", catalogcontrollers.CreateLocation(svc.Catalog, logg))
			r.Get("/{locationId}", catalogcontrollers.GetLocation(svc.Catalog, logg))
		})
		r.With(supervisors).Post("/positions", inventorycontrollers.Receive(svc.Positions, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.Post("/", ordercontrollers.Create(svc.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Get(svc.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
		})

		r.Post("/allocations", allocations.Allocate(svc.Allocator, logg))
		r.Delete("/reservations/{reservationId}", allocations.Release(svc.Allocator, logg))

		r.Route("/waves", func(r chi.Router) {
			r.Post("/", wavecontrollers.Create(svc.Waves, logg))
			r.Get("/{waveId}", wavecontrollers.Get(svc.Waves, logg))
			r.Post("/{waveId}/cancel", wavecontrollers.Cancel(svc.Waves, logg))
		})
		r.Post("/wave-items/{itemId}/pick", wavecontrollers.ConfirmPick(svc.Picking, logg))

		r.With(supervisors).Post("/reconcile", reconcile.Tenant(svc.Reconciler, logg))
	})

	return r
}
