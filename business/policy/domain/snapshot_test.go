package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBaseline_IsIdentity(t *testing.T) {
	base := Baseline(300, decimal.NewFromFloat(0.005))

	if base.Version != 0 {
		t.Errorf("version = %d, want 0", base.Version)
	}
	if !base.SizeMultiplier.Equal(decimal.NewFromInt(1)) {
		t.Errorf("size multiplier = %s, want 1", base.SizeMultiplier)
	}
	if !base.SlippageToleranceBps.Equal(decimal.NewFromInt(300)) {
		t.Errorf("slippage tolerance = %s, want 300", base.SlippageToleranceBps)
	}
	if !base.GasMultiplier.Equal(decimal.NewFromInt(1)) {
		t.Errorf("gas multiplier = %s, want 1", base.GasMultiplier)
	}
}

func TestSuccessor_IncrementsVersion(t *testing.T) {
	base := Baseline(300, decimal.NewFromFloat(0.005))

	next := base.Successor(base,
		decimal.NewFromFloat(0.8), decimal.NewFromInt(200),
		decimal.NewFromFloat(1.2), decimal.NewFromFloat(0.006),
		nil, 40, time.Now(),
	)
	if next.Version != 1 {
		t.Errorf("version = %d, want 1", next.Version)
	}
	if next.TrainedOnAttempts != 40 {
		t.Errorf("trained on = %d, want 40", next.TrainedOnAttempts)
	}

	after := next.Successor(base,
		decimal.NewFromFloat(0.9), decimal.NewFromInt(250),
		decimal.NewFromInt(1), decimal.NewFromFloat(0.005),
		nil, 55, time.Now(),
	)
	if after.Version != 2 {
		t.Errorf("version = %d, want 2", after.Version)
	}
}

func TestSuccessor_ClampsProviderWeights(t *testing.T) {
	base := Baseline(300, decimal.NewFromFloat(0.005))

	next := base.Successor(base,
		decimal.NewFromInt(1), decimal.NewFromInt(300),
		decimal.NewFromInt(1), decimal.NewFromFloat(0.005),
		map[string]decimal.Decimal{
			"aave":     decimal.NewFromFloat(0.9),
			"balancer": decimal.Zero,
		},
		10, time.Now(),
	)
	if got := next.ProviderWeight("aave"); !got.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("aave weight = %s, want 0.9", got)
	}
	if got := next.ProviderWeight("balancer"); !got.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("balancer weight = %s, want floor 0.25", got)
	}
	if got := next.ProviderWeight("dodo"); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("unknown provider weight = %s, want neutral 1", got)
	}
}

func TestSuccessor_FloorsOnlyTighten(t *testing.T) {
	base := Baseline(300, decimal.NewFromFloat(0.005))

	tests := []struct {
		name                string
		size, slippage      decimal.Decimal
		gas, margin         decimal.Decimal
		wantSize, wantSlip  decimal.Decimal
		wantGas, wantMargin decimal.Decimal
	}{
		{
			name: "proposal within guardrails passes through",
			size: decimal.NewFromFloat(0.5), slippage: decimal.NewFromInt(150),
			gas: decimal.NewFromFloat(1.5), margin: decimal.NewFromFloat(0.01),
			wantSize: decimal.NewFromFloat(0.5), wantSlip: decimal.NewFromInt(150),
			wantGas: decimal.NewFromFloat(1.5), wantMargin: decimal.NewFromFloat(0.01),
		},
		{
			name: "relaxing past configured limits is clamped",
			size: decimal.NewFromInt(2), slippage: decimal.NewFromInt(900),
			gas: decimal.NewFromInt(10), margin: decimal.NewFromFloat(0.001),
			wantSize: decimal.NewFromInt(1), wantSlip: decimal.NewFromInt(300),
			wantGas: decimal.NewFromInt(3), wantMargin: decimal.NewFromFloat(0.005),
		},
		{
			name: "tightening below lower bounds is clamped",
			size: decimal.NewFromFloat(0.01), slippage: decimal.NewFromFloat(0.2),
			gas: decimal.NewFromFloat(0.5), margin: decimal.NewFromFloat(0.005),
			wantSize: decimal.NewFromFloat(0.1), wantSlip: decimal.NewFromInt(1),
			wantGas: decimal.NewFromInt(1), wantMargin: decimal.NewFromFloat(0.005),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base.Successor(base, tt.size, tt.slippage, tt.gas, tt.margin, nil, 10, time.Now())
			if !next.SizeMultiplier.Equal(tt.wantSize) {
				t.Errorf("size = %s, want %s", next.SizeMultiplier, tt.wantSize)
			}
			if !next.SlippageToleranceBps.Equal(tt.wantSlip) {
				t.Errorf("slippage = %s, want %s", next.SlippageToleranceBps, tt.wantSlip)
			}
			if !next.GasMultiplier.Equal(tt.wantGas) {
				t.Errorf("gas = %s, want %s", next.GasMultiplier, tt.wantGas)
			}
			if !next.MinNetMargin.Equal(tt.wantMargin) {
				t.Errorf("margin = %s, want %s", next.MinNetMargin, tt.wantMargin)
			}
		})
	}
}
