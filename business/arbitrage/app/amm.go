// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
)

const bpsDenominator = 10000

// SwapOut computes the exact output of a constant-product swap after
// the pool fee. Integer math throughout; this must agree with what the
// pair contract does, truncation included.
func SwapOut(amountIn, reserveIn, reserveOut *big.Int, feeBps int64) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(bpsDenominator-feeBps))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(bpsDenominator))
	denominator.Add(denominator, inWithFee)
	return numerator.Div(numerator, denominator)
}

// midOut is the fee-adjusted output at the mid price, ignoring depth.
// The gap between midOut and SwapOut is the price impact of the trade.
func midOut(amountIn, reserveIn, reserveOut *big.Int, feeBps int64) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(bpsDenominator-feeBps))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(bpsDenominator))
	return numerator.Div(numerator, denominator)
}

// RouteExecution is the exact result of pushing a trade through every
// hop of a route.
type RouteExecution struct {
	AmountIn    *big.Int
	AmountOut   *big.Int
	SlippageBps decimal.Decimal
}

// ExecuteRoute walks the route with exact swap math. Slippage is the
// shortfall of the realized output against the depth-free output,
// aggregated across hops.
func ExecuteRoute(route *domain.Route, amountIn *big.Int) RouteExecution {
	actual := new(big.Int).Set(amountIn)
	ideal := new(big.Int).Set(amountIn)

	for _, hop := range route.Hops() {
		reserveIn, okIn := hop.Pool.ReserveOf(hop.In.ID())
		reserveOut, okOut := hop.Pool.ReserveOf(hop.Out.ID())
		if !okIn || !okOut {
			return RouteExecution{AmountIn: amountIn, AmountOut: big.NewInt(0)}
		}
		rIn, rOut := reserveIn.Raw(), reserveOut.Raw()
		ideal = midOut(ideal, rIn, rOut, hop.Pool.FeeBps())
		actual = SwapOut(actual, rIn, rOut, hop.Pool.FeeBps())
		if actual.Sign() == 0 {
			break
		}
	}

	slippage := decimal.Zero
	if ideal.Sign() > 0 {
		shortfall := new(big.Int).Sub(ideal, actual)
		slippage = decimal.NewFromBigInt(shortfall, 0).
			Div(decimal.NewFromBigInt(ideal, 0)).
			Mul(decimal.NewFromInt(bpsDenominator))
	}

	return RouteExecution{
		AmountIn:    amountIn,
		AmountOut:   actual,
		SlippageBps: slippage,
	}
}
