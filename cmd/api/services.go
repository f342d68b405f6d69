package main

import (
	"fmt"

	"github.com/angelmondragon/wavepick-backend/api/routes"
	"github.com/angelmondragon/wavepick-backend/internal/allocation"
	"github.com/angelmondragon/wavepick-backend/internal/catalog"
	"github.com/angelmondragon/wavepick-backend/internal/inventory"
	"github.com/angelmondragon/wavepick-backend/internal/orders"
	"github.com/angelmondragon/wavepick-backend/internal/picking"
	"github.com/angelmondragon/wavepick-backend/internal/reconciler"
	"github.com/angelmondragon/wavepick-backend/internal/reservations"
	"github.com/angelmondragon/wavepick-backend/internal/waves"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/db"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/metrics"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
)

// wiring holds the services behind the router plus the drift worker that
// has to be started alongside the server.
type wiring struct {
	services routes.Services
	drift    *reconciler.DriftQueue
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, m *metrics.WarehouseMetrics) (*wiring, error) {
	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	positionsRepo := inventory.NewRepository(conn)
	reservationsRepo := reservations.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	wavesRepo := waves.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	rec, err := reconciler.New(reconciler.Params{
		Positions:    positionsRepo,
		Reservations: reservationsRepo,
		Tx:           dbClient,
		Outbox:       outboxSvc,
		Logger:       logg,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciler: %w", err)
	}
	drift := reconciler.NewDriftQueue(rec, cfg.Reconciler.QueueSize, logg, m)

	ledger, err := inventory.NewLedger(inventory.LedgerParams{
		Repo:    positionsRepo,
		Catalog: catalogRepo,
		Tx:      dbClient,
		Logger:  logg,
		Drift:   drift,
	})
	if err != nil {
		return nil, fmt.Errorf("inventory ledger: %w", err)
	}

	engine, err := allocation.NewEngine(allocation.Params{
		Ledger:       ledger,
		Reservations: reservationsRepo,
		Orders:       ordersRepo,
		Tx:           dbClient,
		Logger:       logg,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("allocation engine: %w", err)
	}

	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Catalog:  catalogRepo,
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Releaser: engine,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	wavesSvc, err := waves.NewService(waves.ServiceParams{
		Repo:         wavesRepo,
		Orders:       ordersRepo,
		Reservations: reservationsRepo,
		Catalog:      catalogRepo,
		Positions:    ledger,
		Allocator:    engine,
		Tx:           dbClient,
		Outbox:       outboxSvc,
		Logger:       logg,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("waves service: %w", err)
	}

	pickingSvc, err := picking.NewService(picking.ServiceParams{
		Waves:        wavesRepo,
		Orders:       ordersRepo,
		Reservations: reservationsRepo,
		Ledger:       ledger,
		Tx:           dbClient,
		Outbox:       outboxSvc,
		Logger:       logg,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("picking service: %w", err)
	}

	return &wiring{
		services: routes.Services{
			Catalog:    catalogSvc,
			Orders:     ordersSvc,
			Positions:  ledger,
			Allocator:  engine,
			Waves:      wavesSvc,
			Picking:    pickingSvc,
			Reconciler: rec,
		},
		drift: drift,
	}, nil
}
