package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable, versioned set of trading parameters.
// Readers always see a fully committed version; a new snapshot never
// alters plans created under a prior one.
type Snapshot struct {
	Version              int64
	SizeMultiplier       decimal.Decimal
	SlippageToleranceBps decimal.Decimal
	GasMultiplier        decimal.Decimal
	MinNetMargin         decimal.Decimal
	// ProviderWeights scores flashloan providers by observed outcome
	// quality, 1 being neutral. Absent providers are neutral.
	ProviderWeights   map[string]decimal.Decimal
	TrainedOnAttempts int
	TrainedAt         time.Time
}

// Guardrails for the adaptive knobs. The baseline carries the
// configured risk limits, which training may only tighten: sizing and
// slippage tolerance never exceed their configured values, the profit
// margin never drops below its configured floor.
var (
	minSizeMultiplier = decimal.NewFromFloat(0.1)
	maxGasMultiplier  = decimal.NewFromInt(3)
	minProviderWeight = decimal.NewFromFloat(0.25)
	one               = decimal.NewFromInt(1)
)

// Baseline builds the version zero snapshot from configured limits.
// It is the identity policy: configured values pass through unchanged.
func Baseline(slippageCeilingBps int64, minNetMargin decimal.Decimal) *Snapshot {
	return &Snapshot{
		Version:              0,
		SizeMultiplier:       one,
		SlippageToleranceBps: decimal.NewFromInt(slippageCeilingBps),
		GasMultiplier:        one,
		MinNetMargin:         minNetMargin,
	}
}

// Successor derives the next snapshot from proposed parameters,
// clamped against the baseline's guardrails. The version increments by
// exactly one regardless of how far the proposal was clamped.
func (s *Snapshot) Successor(
	baseline *Snapshot,
	sizeMultiplier, slippageToleranceBps, gasMultiplier, minNetMargin decimal.Decimal,
	providerWeights map[string]decimal.Decimal,
	trainedOn int,
	at time.Time,
) *Snapshot {
	var weights map[string]decimal.Decimal
	if len(providerWeights) > 0 {
		weights = make(map[string]decimal.Decimal, len(providerWeights))
		for id, w := range providerWeights {
			weights[id] = clamp(w, minProviderWeight, one)
		}
	}
	return &Snapshot{
		Version:              s.Version + 1,
		SizeMultiplier:       clamp(sizeMultiplier, minSizeMultiplier, one),
		SlippageToleranceBps: clamp(slippageToleranceBps, one, baseline.SlippageToleranceBps),
		GasMultiplier:        clamp(gasMultiplier, one, maxGasMultiplier),
		MinNetMargin:         clampFloor(minNetMargin, baseline.MinNetMargin),
		ProviderWeights:      weights,
		TrainedOnAttempts:    trainedOn,
		TrainedAt:            at,
	}
}

// ProviderWeight reports the routing weight for a flashloan provider.
// Providers the training window never settled against score neutral.
func (s *Snapshot) ProviderWeight(providerID string) decimal.Decimal {
	if w, ok := s.ProviderWeights[providerID]; ok {
		return w
	}
	return one
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

func clampFloor(v, lo decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	return v
}
