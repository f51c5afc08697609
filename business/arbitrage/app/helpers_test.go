package app

import (
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/logger"
)

const testChainID = uint64(137)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// testAssets returns a registry with USDC, WETH and WMATIC on the test
// chain, plus a price index quoting all three.
func testAssets(t *testing.T) (*asset.Registry, *asset.PriceIndex, *asset.Asset, *asset.Asset) {
	t.Helper()

	registry := asset.NewRegistry()
	usdc := asset.NewAsset(
		asset.NewTokenAssetID(testChainID, common.HexToAddress("0x00000000000000000000000000000000000000a1")),
		"USDC", 6,
	)
	weth := asset.NewAsset(
		asset.NewTokenAssetID(testChainID, common.HexToAddress("0x00000000000000000000000000000000000000a2")),
		"WETH", 18,
	)
	wmatic := asset.NewAsset(
		asset.NewTokenAssetID(testChainID, common.HexToAddress("0x00000000000000000000000000000000000000a3")),
		"WMATIC", 18,
	)
	registry.Register(usdc)
	registry.Register(weth)
	registry.Register(wmatic)

	prices := asset.NewPriceIndex()
	now := time.Now()
	prices.SetAt(usdc.ID(), decimal.NewFromInt(1), now)
	prices.SetAt(weth.ID(), decimal.NewFromInt(2000), now)
	prices.SetAt(wmatic.ID(), decimal.NewFromInt(1), now)

	return registry, prices, usdc, weth
}

// units scales a whole-token amount into the asset's smallest unit.
func units(amount int64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(amount), scale)
}

func testPool(t *testing.T, addr string, token0, token1 *asset.Asset, reserve0, reserve1 *big.Int, observedAt time.Time) *marketDomain.PoolState {
	t.Helper()

	pool, err := marketDomain.NewPoolState(
		marketDomain.PoolID{ChainID: testChainID, DEXID: "quickswap", Address: common.HexToAddress(addr)},
		token0, token1,
		reserve0, reserve1,
		30, 1000, observedAt,
	)
	if err != nil {
		t.Fatalf("NewPoolState: %v", err)
	}
	return pool
}
