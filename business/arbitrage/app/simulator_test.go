package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
)

type fakeCatalog struct {
	quote FlashloanQuote
	ok    bool
}

func (f fakeCatalog) Cheapest(uint64) (FlashloanQuote, bool) { return f.quote, f.ok }

type fakeGasOracle struct {
	price *big.Int
	err   error
}

func (f fakeGasOracle) GasPrice(context.Context, uint64) (*big.Int, error) {
	return f.price, f.err
}

func (f fakeGasOracle) MaxGasPrice(uint64) *big.Int { return big.NewInt(0) }

type fakePolicy struct {
	params TradingParams
}

func (f fakePolicy) Current() TradingParams { return f.params }

func defaultSimConfig() SimulatorConfig {
	return SimulatorConfig{
		MinProfitThreshold: decimal.NewFromFloat(0.005),
		SlippageCeilingBps: decimal.NewFromInt(500),
		FreshnessBound:     10 * time.Second,
		MaxHops:            4,
		GasPriceMultiplier: decimal.NewFromFloat(1.2),
		SearchIterations:   48,
		LadderSteps:        8,
	}
}

func newTestSimulator(t *testing.T, cfg SimulatorConfig, catalog FlashloanCatalog, registry *asset.Registry, prices *asset.PriceIndex) *Simulator {
	t.Helper()

	sim, err := NewSimulator(cfg,
		catalog,
		fakeGasOracle{price: big.NewInt(30_000_000_000)}, // 30 gwei
		fakePolicy{params: DefaultTradingParams(500)},
		registry, prices, testLogger(),
	)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return sim
}

// spreadOpportunity builds a two-hop USDC cycle over a 5% price spread.
func spreadOpportunity(t *testing.T, usdc, weth *asset.Asset, snapshotAt time.Time) *domain.Opportunity {
	t.Helper()

	poolA := testPool(t, "0xb1", usdc, weth, units(2_000_000, 6), units(1000, 18), snapshotAt)
	poolB := testPool(t, "0xb2", usdc, weth, units(2_100_000, 6), units(1000, 18), snapshotAt)

	route, err := domain.NewRoute([]domain.Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}

	rate := decimal.NewFromFloat(1.0437)
	return domain.NewOpportunity(route, rate, &domain.RiskAssessment{}, snapshotAt)
}

func TestSimulator_ProfitableRoute(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	now := time.Now()
	opp := spreadOpportunity(t, usdc, weth, now)

	sim := newTestSimulator(t, defaultSimConfig(),
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		registry, prices)

	result, err := sim.Simulate(context.Background(), opp)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if !result.NetProfit.IsPositive() {
		t.Errorf("net profit = %s, want positive", result.NetProfit)
	}
	if result.NetMargin.LessThan(decimal.NewFromFloat(0.005)) {
		t.Errorf("net margin = %s, want at least threshold", result.NetMargin)
	}
	if result.ProviderID != "aave" {
		t.Errorf("provider = %s, want aave", result.ProviderID)
	}

	// Window is 0.5% to 5% of the 2M base depth.
	lo := decimal.NewFromInt(10_000)
	hi := decimal.NewFromInt(100_000)
	if result.TradeSize.LessThan(lo) || result.TradeSize.GreaterThan(hi) {
		t.Errorf("trade size %s outside window [%s, %s]", result.TradeSize, lo, hi)
	}

	if result.SlippageBps.GreaterThan(decimal.NewFromInt(500)) {
		t.Errorf("slippage %s bps exceeds tolerance", result.SlippageBps)
	}
	if want := uint64(390_000); result.GasEstimate != want {
		t.Errorf("gas estimate = %d, want %d", result.GasEstimate, want)
	}
	if !result.FlashloanFee.IsPositive() {
		t.Errorf("flashloan fee = %s, want positive", result.FlashloanFee)
	}
}

func TestSimulator_RejectsStaleOpportunity(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	opp := spreadOpportunity(t, usdc, weth, time.Now().Add(-time.Minute))

	sim := newTestSimulator(t, defaultSimConfig(),
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		registry, prices)

	_, err := sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeStaleInput {
		t.Errorf("code = %s, want %s", code, apperror.CodeStaleInput)
	}
}

func TestSimulator_RejectsWithoutProvider(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	opp := spreadOpportunity(t, usdc, weth, time.Now())

	sim := newTestSimulator(t, defaultSimConfig(), fakeCatalog{ok: false}, registry, prices)

	_, err := sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeProviderUnavailable {
		t.Errorf("code = %s, want %s", code, apperror.CodeProviderUnavailable)
	}
}

func TestSimulator_RejectsExcessiveSlippage(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	opp := spreadOpportunity(t, usdc, weth, time.Now())

	cfg := defaultSimConfig()
	cfg.SlippageCeilingBps = decimal.NewFromInt(10)

	sim := newTestSimulator(t, cfg,
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		registry, prices)

	_, err := sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeExcessiveSlippage {
		t.Errorf("code = %s, want %s", code, apperror.CodeExcessiveSlippage)
	}
}

func TestSimulator_PolicyTightensSlippage(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	opp := spreadOpportunity(t, usdc, weth, time.Now())

	sim, err := NewSimulator(defaultSimConfig(),
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		fakeGasOracle{price: big.NewInt(30_000_000_000)},
		fakePolicy{params: TradingParams{
			SizeMultiplier:       decimal.NewFromInt(1),
			SlippageToleranceBps: decimal.NewFromInt(10),
			GasMultiplier:        decimal.NewFromInt(1),
		}},
		registry, prices, testLogger(),
	)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	_, err = sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeExcessiveSlippage {
		t.Errorf("code = %s, want %s", code, apperror.CodeExcessiveSlippage)
	}
}

func TestSimulator_RejectsUnprofitable(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	now := time.Now()

	// Identical pools: the round trip only loses the fees.
	poolA := testPool(t, "0xb1", usdc, weth, units(2_000_000, 6), units(1000, 18), now)
	poolB := testPool(t, "0xb2", usdc, weth, units(2_000_000, 6), units(1000, 18), now)

	route, err := domain.NewRoute([]domain.Hop{
		{Pool: poolA, In: usdc, Out: weth},
		{Pool: poolB, In: weth, Out: usdc},
	}, 4)
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}
	opp := domain.NewOpportunity(route, decimal.NewFromInt(1), &domain.RiskAssessment{}, now)

	sim := newTestSimulator(t, defaultSimConfig(),
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		registry, prices)

	_, err = sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeInsufficientProfit {
		t.Errorf("code = %s, want %s", code, apperror.CodeInsufficientProfit)
	}
}

func TestSimulator_RejectsTooManyHops(t *testing.T) {
	registry, prices, usdc, weth := testAssets(t)
	opp := spreadOpportunity(t, usdc, weth, time.Now())

	cfg := defaultSimConfig()
	cfg.MaxHops = 1

	sim := newTestSimulator(t, cfg,
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		registry, prices)

	_, err := sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeTooManyHops {
		t.Errorf("code = %s, want %s", code, apperror.CodeTooManyHops)
	}
}

func TestSimulator_MissingGasPriceReference(t *testing.T) {
	_, _, usdc, weth := testAssets(t)
	opp := spreadOpportunity(t, usdc, weth, time.Now())

	// Registry without the wrapped native token: gas cannot be priced.
	bare := asset.NewRegistry()
	bare.Register(usdc)
	bare.Register(weth)
	prices := asset.NewPriceIndex()
	prices.SetAt(usdc.ID(), decimal.NewFromInt(1), time.Now())
	prices.SetAt(weth.ID(), decimal.NewFromInt(2000), time.Now())

	sim := newTestSimulator(t, defaultSimConfig(),
		fakeCatalog{quote: FlashloanQuote{ProviderID: "aave", FeeBps: 9}, ok: true},
		bare, prices)

	_, err := sim.Simulate(context.Background(), opp)
	if code := apperror.GetCode(err); code != apperror.CodeConfigurationError {
		t.Errorf("code = %s, want %s", code, apperror.CodeConfigurationError)
	}
}
