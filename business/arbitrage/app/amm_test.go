package app

import (
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
)

func TestSwapOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   int64
		reserveIn  int64
		reserveOut int64
		feeBps     int64
		want       int64
	}{
		{
			name:       "balanced pool 30 bps",
			amountIn:   1000,
			reserveIn:  1_000_000,
			reserveOut: 1_000_000,
			feeBps:     30,
			want:       996, // 9_970_000 * 1_000_000 / 10_009_970_000, truncated
		},
		{
			name:       "no fee",
			amountIn:   1000,
			reserveIn:  2000,
			reserveOut: 1000,
			feeBps:     0,
			want:       333,
		},
		{
			name:       "zero input",
			amountIn:   0,
			reserveIn:  1_000_000,
			reserveOut: 1_000_000,
			feeBps:     30,
			want:       0,
		},
		{
			name:       "drained pool",
			amountIn:   1000,
			reserveIn:  0,
			reserveOut: 1_000_000,
			feeBps:     30,
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SwapOut(big.NewInt(tt.amountIn), big.NewInt(tt.reserveIn), big.NewInt(tt.reserveOut), tt.feeBps)
			if got.Int64() != tt.want {
				t.Errorf("SwapOut() = %d, want %d", got.Int64(), tt.want)
			}
		})
	}
}

func TestSwapOut_NeverExceedsMid(t *testing.T) {
	in := big.NewInt(50_000)
	rIn := big.NewInt(1_000_000)
	rOut := big.NewInt(2_000_000)

	actual := SwapOut(in, rIn, rOut, 30)
	ideal := midOut(in, rIn, rOut, 30)
	if actual.Cmp(ideal) >= 0 {
		t.Errorf("SwapOut %s should be below depth-free output %s", actual, ideal)
	}
}

func TestExecuteRoute_ProfitableCycle(t *testing.T) {
	_, _, usdc, weth := testAssets(t)
	now := time.Now()

	// WETH is priced at 2000 USDC in pool A and 2100 in pool B, so
	// buying in A and selling in B beats the round-trip fees.
	poolA := testPool(t, "0xb1", usdc, weth, units(2_000_000, 6), units(1000, 18), now)
	poolB := testPool(t, "0xb2", usdc, weth, units(2_100_000, 6), units(1000, 18), now)

	route, err := domain.NewRoute([]domain.Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}

	in := units(10_000, 6)
	exec := ExecuteRoute(route, in)

	if exec.AmountOut.Cmp(in) <= 0 {
		t.Errorf("expected round trip to be profitable, in=%s out=%s", in, exec.AmountOut)
	}
	if !exec.SlippageBps.IsPositive() {
		t.Errorf("expected positive slippage, got %s", exec.SlippageBps)
	}
}

func TestExecuteRoute_SlippageGrowsWithSize(t *testing.T) {
	_, _, usdc, weth := testAssets(t)
	now := time.Now()

	poolA := testPool(t, "0xb1", usdc, weth, units(2_000_000, 6), units(1000, 18), now)
	poolB := testPool(t, "0xb2", usdc, weth, units(2_100_000, 6), units(1000, 18), now)

	route, err := domain.NewRoute([]domain.Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}

	small := ExecuteRoute(route, units(10_000, 6))
	large := ExecuteRoute(route, units(100_000, 6))

	if !large.SlippageBps.GreaterThan(small.SlippageBps) {
		t.Errorf("slippage should grow with size: small=%s large=%s",
			small.SlippageBps, large.SlippageBps)
	}
}

func TestExecuteRoute_ZeroInput(t *testing.T) {
	_, _, usdc, weth := testAssets(t)
	now := time.Now()

	poolA := testPool(t, "0xb1", usdc, weth, units(2_000_000, 6), units(1000, 18), now)
	poolB := testPool(t, "0xb2", usdc, weth, units(2_100_000, 6), units(1000, 18), now)

	route, err := domain.NewRoute([]domain.Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}

	exec := ExecuteRoute(route, big.NewInt(0))
	if exec.AmountOut.Sign() != 0 {
		t.Errorf("zero input should yield zero output, got %s", exec.AmountOut)
	}
}
