package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
)

// FlashloanQuote is what the execution layer knows about borrowing on
// a chain: the cheapest usable provider and its fee.
type FlashloanQuote struct {
	ProviderID string
	FeeBps     int64
}

// FlashloanCatalog answers which provider the simulator should price
// against. Implemented by the execution context's provider catalog.
type FlashloanCatalog interface {
	Cheapest(chainID uint64) (FlashloanQuote, bool)
}

// TradingParams are the knobs the adaptive policy tunes. Defaults are
// the identity: configured values pass through unchanged.
type TradingParams struct {
	SizeMultiplier       decimal.Decimal // scales the trade size search window
	SlippageToleranceBps decimal.Decimal // tightens the configured ceiling
	GasMultiplier        decimal.Decimal // scales the gas price estimate
}

// DefaultTradingParams returns the identity parameters.
func DefaultTradingParams(slippageCeilingBps int64) TradingParams {
	return TradingParams{
		SizeMultiplier:       decimal.NewFromInt(1),
		SlippageToleranceBps: decimal.NewFromInt(slippageCeilingBps),
		GasMultiplier:        decimal.NewFromInt(1),
	}
}

// PolicyProvider supplies the current trading parameters. Implemented
// by the policy context; reads must be cheap and lock-free.
type PolicyProvider interface {
	Current() TradingParams
}

// ExecutionGateway hands a profitable simulation to the execution
// layer. Implementations must be idempotent per opportunity ID.
type ExecutionGateway interface {
	Execute(ctx context.Context, result *domain.SimulationResult) error
}

// Reporter surfaces pipeline output to an operator.
type Reporter interface {
	Start(ctx context.Context) error
	ReportOpportunity(opp *domain.Opportunity)
	ReportSimulation(result *domain.SimulationResult)
	ReportStats(summary domain.Summary)
	Stop() error
}
