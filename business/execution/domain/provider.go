package domain

import (
	"github.com/shopspring/decimal"
)

// Provider is one entry of the flashloan provider catalog. The
// orchestrator only reads it; the catalog owns refreshes.
type Provider struct {
	ID              string
	Name            string
	FeeBps          int64
	Chains          []uint64
	MaxLiquidityUSD decimal.Decimal
	Available       bool
}

// SupportsChain reports whether the provider lends on the given chain.
func (p Provider) SupportsChain(chainID uint64) bool {
	for _, id := range p.Chains {
		if id == chainID {
			return true
		}
	}
	return false
}

// CanFund reports whether the provider is live and deep enough for the
// requested notional.
func (p Provider) CanFund(chainID uint64, amountUSD decimal.Decimal) bool {
	if !p.Available || !p.SupportsChain(chainID) {
		return false
	}
	return p.MaxLiquidityUSD.IsZero() || amountUSD.LessThanOrEqual(p.MaxLiquidityUSD)
}

// Fee returns the flashloan fee for a notional amount.
func (p Provider) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(p.FeeBps)).Div(decimal.NewFromInt(10000))
}

// TotalCost is the comparable selection cost: flashloan fee plus the
// expected gas spend, both in USD terms.
func (p Provider) TotalCost(amountUSD, gasUSD decimal.Decimal) decimal.Decimal {
	return p.Fee(amountUSD).Add(gasUSD)
}
