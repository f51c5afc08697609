package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
)

type staticCatalog struct {
	providers []domain.Provider
}

func (s staticCatalog) Providers(chainID uint64) []domain.Provider {
	var out []domain.Provider
	for _, p := range s.providers {
		if p.SupportsChain(chainID) {
			out = append(out, p)
		}
	}
	return out
}

func (s staticCatalog) Cheapest(chainID uint64) (domain.Provider, bool) {
	best, found := domain.Provider{}, false
	for _, p := range s.Providers(chainID) {
		if !p.Available {
			continue
		}
		if !found || p.FeeBps < best.FeeBps {
			best, found = p, true
		}
	}
	return best, found
}

func defaultProviders() []domain.Provider {
	return []domain.Provider{
		{ID: "aave", FeeBps: 9, Chains: []uint64{137, 10, 42161}, MaxLiquidityUSD: decimal.NewFromInt(50_000_000), Available: true},
		{ID: "balancer", FeeBps: 6, Chains: []uint64{137, 42161}, MaxLiquidityUSD: decimal.NewFromInt(20_000_000), Available: true},
		{ID: "dydx", FeeBps: 0, Chains: []uint64{42161}, MaxLiquidityUSD: decimal.NewFromInt(10_000_000), Available: true},
	}
}

func TestSelector_PicksLowestTotalCost(t *testing.T) {
	selector := NewSelector(staticCatalog{providers: defaultProviders()}, nil)

	tests := []struct {
		name      string
		chainID   uint64
		amountUSD int64
		want      string
	}{
		{name: "cheapest fee wins on shared chain", chainID: 137, amountUSD: 100_000, want: "balancer"},
		{name: "zero fee provider wins where supported", chainID: 42161, amountUSD: 100_000, want: "dydx"},
		{name: "depth limit excludes the cheap provider", chainID: 42161, amountUSD: 15_000_000, want: "balancer"},
		{name: "only one provider deep enough", chainID: 137, amountUSD: 30_000_000, want: "aave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := selector.Select(tt.chainID, decimal.NewFromInt(tt.amountUSD), decimal.NewFromInt(50))
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if provider.ID != tt.want {
				t.Errorf("selected %s, want %s", provider.ID, tt.want)
			}
		})
	}
}

func TestSelector_NoQualifyingProvider(t *testing.T) {
	selector := NewSelector(staticCatalog{providers: defaultProviders()}, nil)

	tests := []struct {
		name      string
		chainID   uint64
		amountUSD int64
	}{
		{name: "unsupported chain", chainID: 56, amountUSD: 100_000},
		{name: "notional above every depth limit", chainID: 137, amountUSD: 80_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := selector.Select(tt.chainID, decimal.NewFromInt(tt.amountUSD), decimal.NewFromInt(50))
			if code := apperror.GetCode(err); code != apperror.CodeProviderUnavailable {
				t.Errorf("code = %s, want %s", code, apperror.CodeProviderUnavailable)
			}
		})
	}
}

func TestSelector_RoutingWeightSteersAway(t *testing.T) {
	weights := map[string]decimal.Decimal{"balancer": decimal.NewFromFloat(0.5)}
	weightFn := func(id string) decimal.Decimal {
		if w, ok := weights[id]; ok {
			return w
		}
		return decimal.NewFromInt(1)
	}

	selector := NewSelector(staticCatalog{providers: defaultProviders()}, weightFn)
	provider, err := selector.Select(137, decimal.NewFromInt(100_000), decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	// balancer is cheaper on fees but its halved weight doubles its
	// effective cost, so aave wins.
	if provider.ID != "aave" {
		t.Errorf("selected %s, want aave when balancer is down-weighted", provider.ID)
	}
}

func TestSelector_SkipsUnavailableProvider(t *testing.T) {
	providers := defaultProviders()
	providers[1].Available = false // balancer down

	selector := NewSelector(staticCatalog{providers: providers}, nil)
	provider, err := selector.Select(137, decimal.NewFromInt(100_000), decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if provider.ID != "aave" {
		t.Errorf("selected %s, want aave when balancer is unavailable", provider.ID)
	}
}
