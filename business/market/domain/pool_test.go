package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
)

func testPoolID() PoolID {
	return PoolID{
		ChainID: asset.ChainPolygon,
		DEXID:   "quickswap",
		Address: common.HexToAddress("0x6e7a5FAFcec6BB1e78bAE2A1F0B612012BF14827"),
	}
}

func TestNewPoolState_Validation(t *testing.T) {
	id := testPoolID()
	now := time.Now()

	tests := []struct {
		name     string
		token0   *asset.Asset
		token1   *asset.Asset
		reserve0 *big.Int
		reserve1 *big.Int
		feeBps   int64
		wantCode apperror.Code
	}{
		{
			name:     "valid pool",
			token0:   asset.USDCPolygon,
			token1:   asset.WETHPolygon,
			reserve0: big.NewInt(1_000_000_000_000), // 1M USDC
			reserve1: big.NewInt(1e18),
			feeBps:   30,
		},
		{
			name:     "zero reserve0",
			token0:   asset.USDCPolygon,
			token1:   asset.WETHPolygon,
			reserve0: big.NewInt(0),
			reserve1: big.NewInt(1e18),
			feeBps:   30,
			wantCode: apperror.CodeMalformedSnapshot,
		},
		{
			name:     "negative reserve1",
			token0:   asset.USDCPolygon,
			token1:   asset.WETHPolygon,
			reserve0: big.NewInt(1_000_000),
			reserve1: big.NewInt(-5),
			feeBps:   30,
			wantCode: apperror.CodeMalformedSnapshot,
		},
		{
			name:     "nil reserves",
			token0:   asset.USDCPolygon,
			token1:   asset.WETHPolygon,
			reserve0: nil,
			reserve1: nil,
			feeBps:   30,
			wantCode: apperror.CodeMalformedSnapshot,
		},
		{
			name:     "missing token",
			token0:   nil,
			token1:   asset.WETHPolygon,
			reserve0: big.NewInt(1),
			reserve1: big.NewInt(1),
			feeBps:   30,
			wantCode: apperror.CodeMalformedSnapshot,
		},
		{
			name:     "same token both sides",
			token0:   asset.USDCPolygon,
			token1:   asset.USDCPolygon,
			reserve0: big.NewInt(1),
			reserve1: big.NewInt(1),
			feeBps:   30,
			wantCode: apperror.CodeMalformedSnapshot,
		},
		{
			name:     "fee over 100 percent",
			token0:   asset.USDCPolygon,
			token1:   asset.WETHPolygon,
			reserve0: big.NewInt(1),
			reserve1: big.NewInt(1),
			feeBps:   10000,
			wantCode: apperror.CodeMalformedSnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := NewPoolState(id, tt.token0, tt.token1, tt.reserve0, tt.reserve1, tt.feeBps, 100, now)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if state == nil {
					t.Fatal("expected pool state")
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperror.GetCode(err); got != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestPoolState_Freshness(t *testing.T) {
	now := time.Now()
	state, err := NewPoolState(testPoolID(), asset.USDCPolygon, asset.WETHPolygon,
		big.NewInt(1_000_000_000_000), big.NewInt(1e18), 30, 100, now.Add(-5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !state.IsFresh(now, 10*time.Second) {
		t.Error("5s old observation should be fresh within 10s bound")
	}
	if state.IsFresh(now, 3*time.Second) {
		t.Error("5s old observation should be stale past 3s bound")
	}
}

func TestPoolState_Other(t *testing.T) {
	state, err := NewPoolState(testPoolID(), asset.USDCPolygon, asset.WETHPolygon,
		big.NewInt(1_000_000_000_000), big.NewInt(1e18), 30, 100, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other, ok := state.Other(asset.USDCPolygon.ID())
	if !ok || !other.ID().Equals(asset.WETHPolygon.ID()) {
		t.Errorf("expected WETH counterpart, got %v", other)
	}

	if _, ok := state.Other(asset.DAIPolygon.ID()); ok {
		t.Error("expected no counterpart for token outside the pair")
	}
}

func TestSnapshot_Filters(t *testing.T) {
	now := time.Now()
	prices := asset.NewPriceIndex()
	prices.Set(asset.USDCPolygon.ID(), decimal.NewFromInt(1))
	prices.Set(asset.WETHPolygon.ID(), decimal.NewFromInt(2000))

	fresh, err := NewPoolState(testPoolID(), asset.USDCPolygon, asset.WETHPolygon,
		big.NewInt(1_000_000_000_000), big.NewInt(500e15), 30, 100, now) // $1M + ~$1000
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	staleID := testPoolID()
	staleID.Address = common.HexToAddress("0x853Ee4b2A13f8a742d64C8F088bE7bA2131f670d")
	stale, err := NewPoolState(staleID, asset.USDCPolygon, asset.WETHPolygon,
		big.NewInt(1_000_000_000_000), big.NewInt(500e15), 30, 90, now.Add(-1*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	thinID := testPoolID()
	thinID.Address = common.HexToAddress("0xadbF1854e5883eB8aa7BAf50705338739e558E5b")
	thin, err := NewPoolState(thinID, asset.USDCPolygon, asset.WETHPolygon,
		big.NewInt(50_000_000_000), big.NewInt(10e15), 30, 100, now) // ~$50k
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := NewSnapshot([]*PoolState{fresh, stale, thin}, now)

	got := snap.Fresh(now, 10*time.Second)
	if got.Len() != 2 {
		t.Errorf("expected 2 fresh pools, got %d", got.Len())
	}

	got = snap.Liquid(prices, decimal.NewFromInt(100_000))
	if got.Len() != 2 {
		t.Errorf("expected 2 liquid pools, got %d", got.Len())
	}

	got = snap.Fresh(now, 10*time.Second).Liquid(prices, decimal.NewFromInt(100_000))
	if got.Len() != 1 {
		t.Errorf("expected 1 fresh liquid pool, got %d", got.Len())
	}
	if got.Len() == 1 && got.Pools()[0].ID() != fresh.ID() {
		t.Errorf("expected pool %s to survive filters", fresh.ID())
	}
}
