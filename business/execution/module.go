// Package execution implements the execution bounded context: flashloan
// provider selection, transaction submission, and outcome observation.
package execution

import (
	"context"

	arbitrageDI "github.com/fd1az/flasharb/business/arbitrage/di"
	"github.com/fd1az/flasharb/business/execution/app"
	executionDI "github.com/fd1az/flasharb/business/execution/di"
	"github.com/fd1az/flasharb/business/execution/infra/catalog"
	"github.com/fd1az/flasharb/business/execution/infra/ethereum"
	"github.com/fd1az/flasharb/business/execution/infra/events"
	"github.com/fd1az/flasharb/business/execution/infra/store"
	policyDI "github.com/fd1az/flasharb/business/policy/di"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/chainclient"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/di"
	"github.com/fd1az/flasharb/internal/logger"
	"github.com/fd1az/flasharb/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct {
	catalog *catalog.Catalog
	store   *store.Postgres
	events  app.EventPublisher
}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Catalog (public - the simulator prices against it)
	di.RegisterToken(c, executionDI.Catalog, func(sr di.ServiceRegistry) app.ProviderCatalog {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		cat := catalog.New(cfg.Execution.Providers, cfg.Execution.CatalogURL, log)
		m.catalog = cat
		return cat
	})

	// Register AttemptStore (public - the policy trainer reads it)
	di.RegisterToken(c, executionDI.AttemptStore, func(sr di.ServiceRegistry) app.AttemptStore {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Storage.PostgresURL == "" {
			log.Info(context.Background(), "no postgres configured, using in-memory attempt store")
			return store.NewMemory()
		}
		pg, err := store.NewPostgres(context.Background(), cfg.Storage.PostgresURL)
		if err != nil {
			panic("failed to connect attempt store: " + err.Error())
		}
		m.store = pg
		return pg
	})

	// Register EventPublisher - private dependency
	di.RegisterToken(c, executionDI.Events, func(sr di.ServiceRegistry) app.EventPublisher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Storage.RedisURL == "" {
			m.events = events.NewNoopPublisher()
			return m.events
		}
		pub, err := events.NewRedisPublisher(context.Background(), cfg.Storage.RedisURL, log)
		if err != nil {
			panic("failed to connect event publisher: " + err.Error())
		}
		m.events = pub
		return pub
	})

	// Register Selector - private dependency
	di.RegisterToken(c, executionDI.Selector, func(sr di.ServiceRegistry) *app.Selector {
		policy := policyDI.GetService(sr)
		return app.NewSelector(executionDI.GetCatalog(sr), policy.ProviderWeight)
	})

	// Register Submitter - private dependency
	di.RegisterToken(c, executionDI.Submitter, func(sr di.ServiceRegistry) app.Submitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		chains := sr.Get("chains").(*chainclient.Registry)

		submitter, err := ethereum.NewSubmitter(chains, &cfg.Execution, log)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return submitter
	})

	// Register Orchestrator (public)
	di.RegisterToken(c, executionDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		prices := sr.Get("prices").(*asset.PriceIndex)

		orchestrator, err := app.NewOrchestrator(app.OrchestratorConfig{
			MaxRetries:     cfg.Execution.MaxRetries,
			InitialBackoff: cfg.Execution.InitialBackoff,
			MaxBackoff:     cfg.Execution.MaxBackoff,
			ConfirmTimeout: cfg.Execution.ConfirmTimeout,
			FreshnessBound: cfg.Detection.FreshnessBound,
		},
			executionDI.GetSelector(sr),
			executionDI.GetSubmitter(sr),
			executionDI.GetAttemptStore(sr),
			executionDI.GetEvents(sr),
			prices,
			arbitrageDI.GetStats(sr),
			log,
		)
		if err != nil {
			panic("failed to create orchestrator: " + err.Error())
		}
		return orchestrator
	})

	return nil
}

// Startup launches the provider catalog refresh loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()

	// Resolving the token also materializes the catalog.
	executionDI.GetCatalog(mono.Services())
	if m.catalog != nil {
		m.catalog.StartRefresh(ctx, cfg.Execution.CatalogInterval)
	}

	mono.Logger().Info(ctx, "execution module started",
		"enabled", cfg.Execution.Enabled,
		"providers", len(cfg.Execution.Providers),
		"catalog_refresh", cfg.Execution.CatalogURL != "",
	)
	return nil
}

// Shutdown stops the catalog refresh and closes external connections.
func (m *Module) Shutdown() error {
	if m.catalog != nil {
		m.catalog.Close()
	}
	if m.events != nil {
		_ = m.events.Close()
	}
	if m.store != nil {
		m.store.Close()
	}
	return nil
}
