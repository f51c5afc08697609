package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulationResult is the simulator's verdict on an opportunity at its
// optimal trade size. All values are in the route's base asset except
// the USD conversions.
type SimulationResult struct {
	Opportunity *Opportunity

	TradeSize    decimal.Decimal // base asset borrowed
	ExpectedOut  decimal.Decimal // base asset returned by the route
	GrossProfit  decimal.Decimal // ExpectedOut - TradeSize
	FlashloanFee decimal.Decimal // in base asset
	GasCostBase  decimal.Decimal // gas converted to base asset
	NetProfit    decimal.Decimal // Gross - fee - gas
	NetMargin    decimal.Decimal // NetProfit / TradeSize

	SlippageBps decimal.Decimal // realized vs mid-price execution
	ProviderID  string
	GasEstimate uint64
	SimulatedAt time.Time
}

// Profitable reports whether the net result clears zero. Threshold
// checks against the configured minimum happen in the simulator, which
// returns a typed rejection instead of a result.
func (s *SimulationResult) Profitable() bool {
	return s.NetProfit.IsPositive()
}

// NetProfitUSD converts net profit through the base asset's USD price.
func (s *SimulationResult) NetProfitUSD(basePriceUSD decimal.Decimal) decimal.Decimal {
	return s.NetProfit.Mul(basePriceUSD)
}
