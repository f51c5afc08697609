// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/flasharb/business/market/app"
	"github.com/fd1az/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SnapshotService = di.NewToken[*app.SnapshotService]("market.SnapshotService")
	GasOracle       = di.NewToken[app.GasOracle]("market.GasOracle")
)

// Private dependency tokens - internal to market module
var (
	PoolSource = di.NewToken[app.PoolSource]("market:poolSource")
)

// Helper functions for type-safe access
func GetSnapshotService(c di.ServiceRegistry) *app.SnapshotService {
	return di.GetToken(c, SnapshotService)
}

func GetPoolSource(c di.ServiceRegistry) app.PoolSource {
	return di.GetToken(c, PoolSource)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
