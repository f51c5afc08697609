// Package arbitrage implements the arbitrage bounded context: cycle
// detection over market snapshots and exact-math trade simulation.
package arbitrage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/flasharb/business/arbitrage/di"
	"github.com/fd1az/flasharb/business/arbitrage/domain"
	"github.com/fd1az/flasharb/business/arbitrage/infra"
	executionDI "github.com/fd1az/flasharb/business/execution/di"
	marketDI "github.com/fd1az/flasharb/business/market/di"
	policyDI "github.com/fd1az/flasharb/business/policy/di"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/di"
	"github.com/fd1az/flasharb/internal/logger"
	"github.com/fd1az/flasharb/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// catalogAdapter bridges the execution catalog into the simulator's
// FlashloanCatalog port.
type catalogAdapter struct {
	sr di.ServiceRegistry
}

func (a catalogAdapter) Cheapest(chainID uint64) (app.FlashloanQuote, bool) {
	provider, ok := executionDI.GetCatalog(a.sr).Cheapest(chainID)
	if !ok {
		return app.FlashloanQuote{}, false
	}
	return app.FlashloanQuote{ProviderID: provider.ID, FeeBps: provider.FeeBps}, true
}

// policyAdapter bridges the policy service into the simulator's
// PolicyProvider port.
type policyAdapter struct {
	sr di.ServiceRegistry
}

func (a policyAdapter) Current() app.TradingParams {
	params := policyDI.GetService(a.sr).Current()
	return app.TradingParams{
		SizeMultiplier:       params.SizeMultiplier,
		SlippageToleranceBps: params.SlippageToleranceBps,
		GasMultiplier:        params.GasMultiplier,
	}
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Stats (public - execution reports outcomes into it)
	di.RegisterToken(c, arbitrageDI.Stats, func(sr di.ServiceRegistry) *domain.Stats {
		return domain.NewStats()
	})

	// Register Reporter - private dependency
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		return infra.NewConsoleReporter(cfg.App.Environment != "production")
	})

	// Register Detector - private dependency
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		prices := sr.Get("prices").(*asset.PriceIndex)

		detector, err := app.NewDetector(app.DetectorConfig{
			MinProfitThreshold: cfg.Detection.MinProfitThresholdDecimal(),
			MinLiquidityUSD:    cfg.Detection.MinLiquidityUSDDecimal(),
			FreshnessBound:     cfg.Detection.FreshnessBound,
			MaxHops:            cfg.Detection.MaxHops,
			MaxCandidates:      cfg.Detection.MaxCandidates,
			BaseAssets:         cfg.Detection.BaseAssets,
		}, registry, prices, log)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return detector
	})

	// Register Simulator - private dependency
	di.RegisterToken(c, arbitrageDI.Simulator, func(sr di.ServiceRegistry) *app.Simulator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		prices := sr.Get("prices").(*asset.PriceIndex)

		simulator, err := app.NewSimulator(app.SimulatorConfig{
			MinProfitThreshold: cfg.Detection.MinProfitThresholdDecimal(),
			SlippageCeilingBps: decimal.NewFromInt(cfg.Simulation.SlippageCeilingBps),
			FreshnessBound:     cfg.Detection.FreshnessBound,
			MaxHops:            cfg.Detection.MaxHops,
			GasPriceMultiplier: decimal.NewFromFloat(cfg.Simulation.GasPriceMultiplier),
			SearchIterations:   cfg.Simulation.SearchIterations,
			LadderSteps:        cfg.Simulation.LadderSteps,
		},
			catalogAdapter{sr: sr},
			marketDI.GetGasOracle(sr),
			policyAdapter{sr: sr},
			registry, prices, log,
		)
		if err != nil {
			panic("failed to create simulator: " + err.Error())
		}
		return simulator
	})

	// Register Scanner (public)
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var gateway app.ExecutionGateway
		if cfg.Execution.Enabled {
			gateway = executionDI.GetOrchestrator(sr)
		}

		return app.NewScanner(app.ScannerConfig{
			Interval:     cfg.Market.PollInterval,
			Concurrency:  cfg.Detection.Concurrency,
			MaxRiskScore: decimal.NewFromFloat(cfg.Detection.MaxRiskScore),
			AutoExecute:  cfg.Execution.Enabled,
		},
			marketDI.GetSnapshotService(sr),
			arbitrageDI.GetDetector(sr),
			arbitrageDI.GetSimulator(sr),
			gateway,
			arbitrageDI.GetReporter(sr),
			arbitrageDI.GetStats(sr),
			log,
		)
	})

	return nil
}

// Startup launches the scan loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	scanner := arbitrageDI.GetScanner(mono.Services())

	go func() {
		if err := scanner.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "scanner stopped", "error", err)
		}
	}()

	log.Info(ctx, "arbitrage module started",
		"auto_execute", mono.Config().Execution.Enabled,
	)
	return nil
}
