package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/asset"
)

func testRouteAndPrices(t *testing.T) (*Route, *asset.PriceIndex) {
	t.Helper()

	usdc := newToken(t, 137, "0xa1", "USDC", 6)
	weth := newToken(t, 137, "0xa2", "WETH", 18)

	poolA := newPool(t, 137, "0xb1", usdc, weth, scaled(2_000_000, 6), scaled(1000, 18))
	poolB := newPool(t, 137, "0xb2", usdc, weth, scaled(2_100_000, 6), scaled(1000, 18))

	route, err := NewRoute([]Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}

	prices := asset.NewPriceIndex()
	now := time.Now()
	prices.SetAt(usdc.ID(), decimal.NewFromInt(1), now)
	prices.SetAt(weth.ID(), decimal.NewFromInt(2000), now)
	return route, prices
}

func TestAssessRisk_DeepFreshRoute(t *testing.T) {
	route, prices := testRouteAndPrices(t)

	risk := AssessRisk(route,
		decimal.NewFromFloat(0.04),
		prices,
		decimal.NewFromInt(100_000),
		10*time.Second,
		time.Now(),
	)

	// $4M pools against a $100k floor, fresh reserves, a fat margin:
	// nothing should score.
	if !risk.Score.IsZero() {
		t.Errorf("score = %s, want 0 (factors: %+v)", risk.Score, risk.Factors)
	}
	if !risk.Acceptable(decimal.NewFromInt(70)) {
		t.Error("benign route must clear the gate")
	}
}

func TestAssessRisk_UnknownDepth(t *testing.T) {
	route, _ := testRouteAndPrices(t)

	risk := AssessRisk(route,
		decimal.NewFromFloat(0.04),
		asset.NewPriceIndex(),
		decimal.NewFromInt(100_000),
		10*time.Second,
		time.Now(),
	)

	if risk.Score.LessThan(decimal.NewFromInt(30)) {
		t.Errorf("unvaluable pools should score at least 30, got %s", risk.Score)
	}
	found := false
	for _, f := range risk.Factors {
		if f.Name == "unknown_depth" {
			found = true
		}
	}
	if !found {
		t.Error("expected an unknown_depth factor")
	}
}

func TestAssessRisk_StaleReserves(t *testing.T) {
	route, prices := testRouteAndPrices(t)

	fresh := AssessRisk(route, decimal.NewFromFloat(0.04), prices,
		decimal.NewFromInt(100_000), 10*time.Second, time.Now())
	stale := AssessRisk(route, decimal.NewFromFloat(0.04), prices,
		decimal.NewFromInt(100_000), 10*time.Second, time.Now().Add(9*time.Second))

	if !stale.Score.GreaterThan(fresh.Score) {
		t.Errorf("aging reserves must raise the score: fresh=%s stale=%s",
			fresh.Score, stale.Score)
	}
}

func TestAssessRisk_ThinMargin(t *testing.T) {
	route, prices := testRouteAndPrices(t)

	fat := AssessRisk(route, decimal.NewFromFloat(0.04), prices,
		decimal.NewFromInt(100_000), 10*time.Second, time.Now())
	thin := AssessRisk(route, decimal.NewFromFloat(0.006), prices,
		decimal.NewFromInt(100_000), 10*time.Second, time.Now())

	if !thin.Score.GreaterThan(fat.Score) {
		t.Errorf("thin margin must raise the score: fat=%s thin=%s", fat.Score, thin.Score)
	}
}

func TestAssessRisk_CompoundedFactors(t *testing.T) {
	usdc := newToken(t, 137, "0xa1", "USDC", 6)
	weth := newToken(t, 137, "0xa2", "WETH", 18)
	dai := newToken(t, 137, "0xa3", "DAI", 18)
	wbtc := newToken(t, 137, "0xa4", "WBTC", 8)

	poolA := newPool(t, 137, "0xb1", usdc, weth, scaled(2_000, 6), scaled(1, 18))
	poolB := newPool(t, 137, "0xb2", weth, dai, scaled(1, 18), scaled(2_000, 18))
	poolC := newPool(t, 137, "0xb3", dai, wbtc, scaled(60_000, 18), scaled(1, 8))
	poolD := newPool(t, 137, "0xb4", wbtc, usdc, scaled(1, 8), scaled(60_000, 6))

	route, err := NewRoute([]Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: dai},
		{Pool: poolC, In: dai, Out: wbtc},
		{Pool: poolD, In: wbtc, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}

	// Unpriced thin pools on a long route with a sliver of margin,
	// assessed well past the freshness bound.
	risk := AssessRisk(route,
		decimal.NewFromFloat(0.001),
		asset.NewPriceIndex(),
		decimal.NewFromInt(100_000),
		10*time.Second,
		time.Now().Add(time.Minute),
	)

	if risk.Score.LessThan(decimal.NewFromInt(90)) {
		t.Errorf("score = %s, want at least 90 (factors: %+v)", risk.Score, risk.Factors)
	}
	if risk.Score.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("score = %s, must never exceed 100", risk.Score)
	}
	if risk.Acceptable(decimal.NewFromInt(70)) {
		t.Error("a near-maximal score must not clear the gate")
	}
}
