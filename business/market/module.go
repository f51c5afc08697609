// Package market implements the market bounded context: continuous
// observation of DEX pool reserves across the configured chains.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/flasharb/business/market/app"
	marketDI "github.com/fd1az/flasharb/business/market/di"
	"github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/business/market/infra/gas"
	"github.com/fd1az/flasharb/business/market/infra/rpc"
	"github.com/fd1az/flasharb/business/market/infra/stream"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/chainclient"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/di"
	"github.com/fd1az/flasharb/internal/logger"
	"github.com/fd1az/flasharb/internal/monolith"
)

// Module implements the market bounded context.
type Module struct {
	feed *stream.Feed
}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PoolSource (RPC watcher) - private dependency
	di.RegisterToken(c, marketDI.PoolSource, func(sr di.ServiceRegistry) app.PoolSource {
		chains := sr.Get("chains").(*chainclient.Registry)
		log := sr.Get("logger").(logger.LoggerInterface)

		watcher, err := rpc.NewWatcher(chains, log)
		if err != nil {
			panic("failed to create pool watcher: " + err.Error())
		}
		return watcher
	})

	// Register GasOracle (public - exposed to other modules)
	di.RegisterToken(c, marketDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		chains := sr.Get("chains").(*chainclient.Registry)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := gas.NewOracle(chains, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register SnapshotService (public - exposed to other modules)
	di.RegisterToken(c, marketDI.SnapshotService, func(sr di.ServiceRegistry) *app.SnapshotService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		source := marketDI.GetPoolSource(sr)

		specs, err := ResolveSpecs(cfg.Market.Pools, registry)
		if err != nil {
			panic("failed to resolve pool specs: " + err.Error())
		}

		intervals := make(map[uint64]time.Duration)
		for chainID, chain := range cfg.EnabledChains() {
			if chain.ScanInterval > 0 {
				intervals[chainID] = chain.ScanInterval
			}
		}

		svc, err := app.NewSnapshotService(source, specs, app.SnapshotConfig{
			PollInterval:   cfg.Market.PollInterval,
			FetchTimeout:   cfg.Market.StaleTimeout,
			ChainIntervals: intervals,
			Concurrency:    cfg.Detection.Concurrency,
		}, log)
		if err != nil {
			panic("failed to create snapshot service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup starts the polling loop and, when configured, the push feed.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	svc := marketDI.GetSnapshotService(mono.Services())

	go func() {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "market poll loop stopped", "error", err)
		}
	}()

	if cfg.Market.FeedURL != "" {
		specs, err := ResolveSpecs(cfg.Market.Pools, mono.AssetRegistry())
		if err != nil {
			return err
		}
		feed, err := stream.NewFeed(cfg.Market.FeedURL, specs, mono.Prices(), mono.AssetRegistry(), log)
		if err != nil {
			return err
		}
		m.feed = feed
		if err := feed.Start(ctx, svc.Apply); err != nil {
			// The feed is an accelerator on top of polling, not a
			// requirement. Polling alone still satisfies freshness.
			log.Warn(ctx, "market feed connection failed, continuing on polling", "error", err)
		}
	}

	log.Info(ctx, "market module started",
		"pools", len(cfg.Market.Pools),
		"feed", cfg.Market.FeedURL != "",
	)
	return nil
}

// Shutdown closes the push feed if one was started.
func (m *Module) Shutdown() error {
	if m.feed != nil {
		return m.feed.Close()
	}
	return nil
}

// ResolveSpecs turns configured pool entries into fully resolved specs
// with token metadata from the asset registry.
func ResolveSpecs(pools []config.PoolConfig, registry *asset.Registry) ([]app.PoolSpec, error) {
	specs := make([]app.PoolSpec, 0, len(pools))
	for _, p := range pools {
		token0, ok := registry.GetBySymbolAndChain(p.TokenA, p.ChainID)
		if !ok {
			return nil, fmt.Errorf("unknown token %s on chain %d", p.TokenA, p.ChainID)
		}
		token1, ok := registry.GetBySymbolAndChain(p.TokenB, p.ChainID)
		if !ok {
			return nil, fmt.Errorf("unknown token %s on chain %d", p.TokenB, p.ChainID)
		}
		specs = append(specs, app.PoolSpec{
			ID: domain.PoolID{
				ChainID: p.ChainID,
				DEXID:   p.DEXID,
				Address: p.AddressHex(),
			},
			Token0: token0,
			Token1: token1,
			FeeBps: p.FeeBps,
		})
	}
	return specs, nil
}
