// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/chainclient"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/di"
	"github.com/fd1az/flasharb/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Chains() *chainclient.Registry
	AssetRegistry() *asset.Registry
	Prices() *asset.PriceIndex
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	chains        *chainclient.Registry
	assetRegistry *asset.Registry
	prices        *asset.PriceIndex
	container     di.Container
}

// New creates a new Monolith instance. It dials every enabled chain
// up front so misconfigured RPC endpoints surface at startup.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	chains, err := chainclient.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	assetRegistry := asset.NewDefaultRegistry()
	prices := asset.NewPriceIndexWithStables(assetRegistry)

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("chains", chains)
	container.Register("assetRegistry", assetRegistry)
	container.Register("prices", prices)

	return &app{
		config:        cfg,
		logger:        log,
		chains:        chains,
		assetRegistry: assetRegistry,
		prices:        prices,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Chains() *chainclient.Registry {
	return a.chains
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Prices() *asset.PriceIndex {
	return a.prices
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	if a.chains != nil {
		a.chains.Close()
	}
	return nil
}
