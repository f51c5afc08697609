package app

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
)

// WeightFn scores a provider's routing preference, 1 being neutral.
// A weight below 1 inflates the provider's effective cost, steering
// selection away from providers with a poor settlement record.
type WeightFn func(providerID string) decimal.Decimal

// Selector picks the cheapest qualifying flashloan provider for an
// attempt. Cost is fee plus expected gas, divided by the provider's
// routing weight; a provider that cannot cover the notional is never
// considered, whatever its fee.
type Selector struct {
	catalog ProviderCatalog
	weight  WeightFn
}

// NewSelector creates a Selector. A nil weight function treats every
// provider as neutral.
func NewSelector(catalog ProviderCatalog, weight WeightFn) *Selector {
	if weight == nil {
		weight = func(string) decimal.Decimal { return decimal.NewFromInt(1) }
	}
	return &Selector{catalog: catalog, weight: weight}
}

// Select returns the lowest effective-cost provider able to fund the
// notional on the chain.
func (s *Selector) Select(chainID uint64, amountUSD, gasUSD decimal.Decimal) (domain.Provider, error) {
	candidates := s.catalog.Providers(chainID)

	eligible := candidates[:0:0]
	for _, p := range candidates {
		if p.CanFund(chainID, amountUSD) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return domain.Provider{}, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithContext(fmt.Sprintf("no provider can fund %s USD on chain %d", amountUSD.StringFixed(0), chainID)))
	}

	sort.Slice(eligible, func(i, j int) bool {
		ci := s.effectiveCost(eligible[i], amountUSD, gasUSD)
		cj := s.effectiveCost(eligible[j], amountUSD, gasUSD)
		if !ci.Equal(cj) {
			return ci.LessThan(cj)
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible[0], nil
}

func (s *Selector) effectiveCost(p domain.Provider, amountUSD, gasUSD decimal.Decimal) decimal.Decimal {
	cost := p.TotalCost(amountUSD, gasUSD)
	w := s.weight(p.ID)
	if w.IsPositive() {
		return cost.Div(w)
	}
	return cost
}
