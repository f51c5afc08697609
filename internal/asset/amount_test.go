package asset_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 WETH = 1e18 wei
	oneWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))

	if oneWETH.IsZero() {
		t.Error("expected non-zero amount")
	}

	d := oneWETH.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if oneWETH.String() != "1 WETH" {
		t.Errorf("expected '1 WETH', got '%s'", oneWETH.String())
	}
}

func TestAmount_Add(t *testing.T) {
	oneWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))
	twoWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(2e18))

	sum, err := oneWETH.Add(twoWETH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(3)
	if !sum.ToDecimal().Equal(expected) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	oneWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))
	oneUSDC := asset.NewAmount(asset.USDCPolygon, big.NewInt(1e6))

	_, err := oneWETH.Add(oneUSDC)
	if err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_CannotAddBridgedVariant(t *testing.T) {
	// Same symbol, different chain: still a different asset.
	polygon := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))
	arbitrum := asset.NewAmount(asset.WETHArbitrum, big.NewInt(1e18))

	_, err := polygon.Add(arbitrum)
	if err == nil {
		t.Error("expected error when adding the same symbol across chains")
	}
}

func TestAmount_Sub(t *testing.T) {
	threeWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(3e18))
	oneWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))

	diff, err := threeWETH.Sub(oneWETH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := decimal.NewFromInt(2)
	if !diff.ToDecimal().Equal(expected) {
		t.Errorf("expected 2, got %s", diff.ToDecimal().String())
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	oneWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))
	twoWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(2e18))

	_, err := oneWETH.Sub(twoWETH)
	if err == nil {
		t.Error("expected error for negative result")
	}
}

func TestParseDecimal(t *testing.T) {
	d := decimal.NewFromFloat(1.5)
	amount, err := asset.ParseDecimal(asset.WETHPolygon, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should be 1.5e18 wei
	expected := big.NewInt(0)
	expected.SetString("1500000000000000000", 10)

	if amount.Raw().Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), amount.Raw().String())
	}
}

func TestParseDecimal_TooManyDecimals(t *testing.T) {
	// USDC has 6 decimals, try to parse 1.1234567 (7 decimals)
	d := decimal.NewFromFloat(1.1234567)
	_, err := asset.ParseDecimal(asset.USDCPolygon, d)
	if err == nil {
		t.Error("expected error for too many decimals")
	}
}

func TestAssetID_Identity(t *testing.T) {
	addr := common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")

	usdcA := asset.NewTokenAssetID(asset.ChainPolygon, addr)
	usdcB := asset.NewTokenAssetID(asset.ChainPolygon, addr)
	if !usdcA.Equals(usdcB) {
		t.Error("same asset should have equal IDs")
	}

	// Same address on a different chain is a different asset.
	other := asset.NewTokenAssetID(asset.ChainArbitrum, addr)
	if usdcA.Equals(other) {
		t.Error("different chains should have different IDs")
	}
}

func TestPriceIndex_ValueUSD(t *testing.T) {
	prices := asset.NewPriceIndex()
	prices.Set(asset.WETHPolygon.ID(), decimal.NewFromInt(2000))

	oneWETH := asset.NewAmount(asset.WETHPolygon, big.NewInt(1e18))
	usd, ok := prices.ValueUSD(oneWETH)
	if !ok {
		t.Fatal("expected a USD valuation for a priced asset")
	}
	if !usd.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000 USD, got %s", usd.String())
	}

	oneUSDC := asset.NewAmount(asset.USDCPolygon, big.NewInt(1e6))
	if _, ok := prices.ValueUSD(oneUSDC); ok {
		t.Error("expected no valuation for an unpriced asset")
	}
}

func TestPriceIndex_SetAtKeepsObservationTime(t *testing.T) {
	prices := asset.NewPriceIndex()
	observed := time.Now().Add(-45 * time.Second)
	prices.SetAt(asset.WETHPolygon.ID(), decimal.NewFromInt(2000), observed)

	price, at, ok := prices.Get(asset.WETHPolygon.ID())
	if !ok {
		t.Fatal("expected price to be recorded")
	}
	if !price.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %s", price.String())
	}
	if !at.Equal(observed) {
		t.Errorf("expected observation time %s, got %s", observed, at)
	}
}

func TestPriceIndex_SpreadSymbols(t *testing.T) {
	registry := asset.NewDefaultRegistry()
	prices := asset.NewPriceIndex()
	prices.Set(asset.WETHPolygon.ID(), decimal.NewFromInt(2000))

	prices.SpreadSymbols(registry)

	price, _, ok := prices.Get(asset.WETHArbitrum.ID())
	if !ok {
		t.Fatal("expected bridged WETH to inherit the price")
	}
	if !price.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %s", price.String())
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := asset.NewDefaultRegistry()

	usdc, ok := r.GetBySymbolAndChain("USDC", asset.ChainPolygon)
	if !ok {
		t.Fatal("USDC not found on Polygon")
	}
	if usdc.Decimals() != 6 {
		t.Errorf("expected 6 decimals, got %d", usdc.Decimals())
	}

	weth, ok := r.GetToken(asset.ChainArbitrum, asset.WETHArbitrum.Address())
	if !ok {
		t.Fatal("WETH not found on Arbitrum by address")
	}
	if weth.Symbol() != "WETH" {
		t.Errorf("expected WETH, got %s", weth.Symbol())
	}
}
