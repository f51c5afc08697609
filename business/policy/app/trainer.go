package app

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	executionDomain "github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/business/policy/domain"
	"github.com/fd1az/flasharb/internal/apperror"
)

// Thresholds driving the parameter adjustments. Rates are over settled
// attempts in the training window.
var (
	highRevertRate  = decimal.NewFromFloat(0.3)
	lowRevertRate   = decimal.NewFromFloat(0.1)
	highSuccessRate = decimal.NewFromFloat(0.7)
	highTimeoutRate = decimal.NewFromFloat(0.2)

	tighten = decimal.NewFromFloat(0.8)
	relax   = decimal.NewFromFloat(1.1)
	raise   = decimal.NewFromFloat(1.25)
	lower   = decimal.NewFromFloat(0.9)
	gasUp   = decimal.NewFromFloat(1.2)
	gasDown = decimal.NewFromFloat(0.95)
)

// Train derives the successor snapshot from a window of attempt
// history. It is a pure function over its inputs: no clock reads, no
// I/O, deterministic for a given history. Reverts tighten sizing,
// slippage tolerance, and the profit margin; a clean window relaxes
// them back toward the configured baseline; timeouts buy gas headroom.
func Train(history []*executionDomain.Attempt, prev, baseline *domain.Snapshot, now time.Time) (*domain.Snapshot, error) {
	var succeeded, reverted, timedOut, settled int
	type providerTally struct{ settled, confirmed int }
	byProvider := make(map[string]*providerTally)
	tally := func(providerID string) *providerTally {
		t, ok := byProvider[providerID]
		if !ok {
			t = &providerTally{}
			byProvider[providerID] = t
		}
		return t
	}
	for _, attempt := range history {
		switch attempt.Status {
		case executionDomain.StatusConfirmed:
			settled++
			if attempt.Succeeded() {
				succeeded++
			}
			t := tally(attempt.ProviderID)
			t.settled++
			t.confirmed++
		case executionDomain.StatusReverted:
			settled++
			reverted++
			tally(attempt.ProviderID).settled++
		case executionDomain.StatusTimedOut:
			timedOut++
		}
	}
	if settled == 0 {
		return nil, apperror.New(apperror.CodeInsufficientData,
			apperror.WithContext(fmt.Sprintf("no settled attempts among %d in window", len(history))))
	}

	settledD := decimal.NewFromInt(int64(settled))
	revertRate := decimal.NewFromInt(int64(reverted)).Div(settledD)
	successRate := decimal.NewFromInt(int64(succeeded)).Div(settledD)
	timeoutRate := decimal.NewFromInt(int64(timedOut)).Div(decimal.NewFromInt(int64(len(history))))

	size := prev.SizeMultiplier
	slippage := prev.SlippageToleranceBps
	margin := prev.MinNetMargin
	switch {
	case revertRate.GreaterThan(highRevertRate):
		size = size.Mul(tighten)
		slippage = slippage.Mul(tighten)
		margin = margin.Mul(raise)
	case revertRate.LessThan(lowRevertRate) && successRate.GreaterThan(highSuccessRate):
		size = size.Mul(relax)
		slippage = slippage.Mul(relax)
		margin = margin.Mul(lower)
	}

	gas := prev.GasMultiplier
	if timeoutRate.GreaterThan(highTimeoutRate) {
		gas = gas.Mul(gasUp)
	} else {
		gas = gas.Mul(gasDown)
	}

	weights := make(map[string]decimal.Decimal, len(byProvider))
	for providerID, t := range byProvider {
		weights[providerID] = decimal.NewFromInt(int64(t.confirmed)).
			Div(decimal.NewFromInt(int64(t.settled)))
	}

	return prev.Successor(baseline, size, slippage, gas, margin, weights, len(history), now), nil
}
