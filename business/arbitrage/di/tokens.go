// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/flasharb/business/arbitrage/app"
	"github.com/fd1az/flasharb/business/arbitrage/domain"
	"github.com/fd1az/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Scanner = di.NewToken[*app.Scanner]("arbitrage.Scanner")
	Stats   = di.NewToken[*domain.Stats]("arbitrage.Stats")
)

// Private dependency tokens - internal to arbitrage module
var (
	Detector  = di.NewToken[*app.Detector]("arbitrage:detector")
	Simulator = di.NewToken[*app.Simulator]("arbitrage:simulator")
	Reporter  = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetStats(c di.ServiceRegistry) *domain.Stats {
	return di.GetToken(c, Stats)
}

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetSimulator(c di.ServiceRegistry) *app.Simulator {
	return di.GetToken(c, Simulator)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
