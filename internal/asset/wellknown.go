package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs for supported networks.
const (
	ChainPolygon  uint64 = 137
	ChainOptimism uint64 = 10
	ChainBSC      uint64 = 56
	ChainBase     uint64 = 8453
	ChainArbitrum uint64 = 42161
)

// Well-known assets across the supported chains. Addresses are the
// canonical deployments; bridged variants are registered under the
// same symbol and disambiguated by chain.
var (
	// Polygon
	WMATICPolygon = NewAssetWithName(
		NewTokenAssetID(ChainPolygon, common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")),
		"WMATIC", "Wrapped Matic", 18)
	WETHPolygon = NewAssetWithName(
		NewTokenAssetID(ChainPolygon, common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")),
		"WETH", "Wrapped Ether", 18)
	USDCPolygon = NewAssetWithName(
		NewTokenAssetID(ChainPolygon, common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")),
		"USDC", "USD Coin", 6)
	USDTPolygon = NewAssetWithName(
		NewTokenAssetID(ChainPolygon, common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F")),
		"USDT", "Tether USD", 6)
	DAIPolygon = NewAssetWithName(
		NewTokenAssetID(ChainPolygon, common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063")),
		"DAI", "Dai Stablecoin", 18)
	WBTCPolygon = NewAssetWithName(
		NewTokenAssetID(ChainPolygon, common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6")),
		"WBTC", "Wrapped Bitcoin", 8)

	// Optimism
	WETHOptimism = NewAssetWithName(
		NewTokenAssetID(ChainOptimism, common.HexToAddress("0x4200000000000000000000000000000000000006")),
		"WETH", "Wrapped Ether", 18)
	USDCOptimism = NewAssetWithName(
		NewTokenAssetID(ChainOptimism, common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85")),
		"USDC", "USD Coin", 6)
	USDTOptimism = NewAssetWithName(
		NewTokenAssetID(ChainOptimism, common.HexToAddress("0x94b008aA00579c1307B0EF2c499aD98a8ce58e58")),
		"USDT", "Tether USD", 6)
	OPOptimism = NewAssetWithName(
		NewTokenAssetID(ChainOptimism, common.HexToAddress("0x4200000000000000000000000000000000000042")),
		"OP", "Optimism", 18)

	// Base
	WETHBase = NewAssetWithName(
		NewTokenAssetID(ChainBase, common.HexToAddress("0x4200000000000000000000000000000000000006")),
		"WETH", "Wrapped Ether", 18)
	USDCBase = NewAssetWithName(
		NewTokenAssetID(ChainBase, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")),
		"USDC", "USD Coin", 6)
	DAIBase = NewAssetWithName(
		NewTokenAssetID(ChainBase, common.HexToAddress("0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb")),
		"DAI", "Dai Stablecoin", 18)

	// Arbitrum
	WETHArbitrum = NewAssetWithName(
		NewTokenAssetID(ChainArbitrum, common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")),
		"WETH", "Wrapped Ether", 18)
	USDCArbitrum = NewAssetWithName(
		NewTokenAssetID(ChainArbitrum, common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")),
		"USDC", "USD Coin", 6)
	USDTArbitrum = NewAssetWithName(
		NewTokenAssetID(ChainArbitrum, common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")),
		"USDT", "Tether USD", 6)
	WBTCArbitrum = NewAssetWithName(
		NewTokenAssetID(ChainArbitrum, common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f")),
		"WBTC", "Wrapped Bitcoin", 8)
	ARBArbitrum = NewAssetWithName(
		NewTokenAssetID(ChainArbitrum, common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548")),
		"ARB", "Arbitrum", 18)

	// BSC
	WBNBBsc = NewAssetWithName(
		NewTokenAssetID(ChainBSC, common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")),
		"WBNB", "Wrapped BNB", 18)
	USDTBsc = NewAssetWithName(
		NewTokenAssetID(ChainBSC, common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")),
		"USDT", "Tether USD", 18)
	BUSDBsc = NewAssetWithName(
		NewTokenAssetID(ChainBSC, common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56")),
		"BUSD", "Binance USD", 18)

	// Fiat
	USD = NewAssetWithName(NewFiatAssetID("USD"), "USD", "US Dollar", 2)
)

// WrappedNativeSymbol returns the wrapped native token symbol for a
// chain. Gas costs are converted to USD through this token's price.
func WrappedNativeSymbol(chainID uint64) string {
	switch chainID {
	case ChainPolygon:
		return "WMATIC"
	case ChainBSC:
		return "WBNB"
	default:
		return "WETH"
	}
}

// NewDefaultRegistry returns a registry pre-populated with the
// well-known assets of every supported chain.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{
		WMATICPolygon, WETHPolygon, USDCPolygon, USDTPolygon, DAIPolygon, WBTCPolygon,
		WETHOptimism, USDCOptimism, USDTOptimism, OPOptimism,
		WETHBase, USDCBase, DAIBase,
		WETHArbitrum, USDCArbitrum, USDTArbitrum, WBTCArbitrum, ARBArbitrum,
		WBNBBsc, USDTBsc, BUSDBsc,
		USD,
	} {
		r.Register(a)
	}
	return r
}
