package app

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
	marketApp "github.com/fd1az/flasharb/business/market/app"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/logger"
)

// Gas heuristics for a flashloan arbitrage transaction. Calibrated
// against mainnet traces of comparable routers; the real estimate at
// submission time supersedes these.
const (
	flashloanOverheadGas = 150_000
	perHopGas            = 120_000
)

// Size search window as a fraction of the shallowest pool on the
// route. Triangular (3-hop) routes get a tighter window since impact
// compounds across an extra pool.
var (
	seedLoDefault = decimal.NewFromFloat(0.005) // 0.5%
	seedHiDefault = decimal.NewFromFloat(0.05)  // 5%
	seedLoTri     = decimal.NewFromFloat(0.003) // 0.3%
	seedHiTri     = decimal.NewFromFloat(0.03)  // 3%
)

// SimulatorConfig holds simulation thresholds.
type SimulatorConfig struct {
	MinProfitThreshold decimal.Decimal
	SlippageCeilingBps decimal.Decimal
	FreshnessBound     time.Duration
	MaxHops            int
	GasPriceMultiplier decimal.Decimal
	SearchIterations   int
	LadderSteps        int
}

type simulatorMetrics struct {
	simulationsTotal metric.Int64Counter
	rejectionsTotal  metric.Int64Counter
	simLatency       metric.Float64Histogram
	netMarginPct     metric.Float64Histogram
}

// Simulator prices an opportunity with exact swap math and finds the
// trade size that maximizes net profit. It never touches the chain;
// everything is computed from the snapshot the opportunity carries.
type Simulator struct {
	cfg      SimulatorConfig
	catalog  FlashloanCatalog
	gas      marketApp.GasOracle
	policy   PolicyProvider
	registry *asset.Registry
	prices   *asset.PriceIndex
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *simulatorMetrics
}

// NewSimulator creates a Simulator.
func NewSimulator(
	cfg SimulatorConfig,
	catalog FlashloanCatalog,
	gasOracle marketApp.GasOracle,
	policy PolicyProvider,
	registry *asset.Registry,
	prices *asset.PriceIndex,
	log logger.LoggerInterface,
) (*Simulator, error) {
	if cfg.SearchIterations <= 0 {
		cfg.SearchIterations = 48
	}
	if cfg.LadderSteps <= 0 {
		cfg.LadderSteps = 8
	}
	s := &Simulator{
		cfg:      cfg,
		catalog:  catalog,
		gas:      gasOracle,
		policy:   policy,
		registry: registry,
		prices:   prices,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &simulatorMetrics{}

	s.metrics.simulationsTotal, err = meter.Int64Counter(
		"simulations_total",
		metric.WithDescription("Simulation attempts"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejectionsTotal, err = meter.Int64Counter(
		"simulation_rejections_total",
		metric.WithDescription("Simulations ending in a typed rejection"),
	)
	if err != nil {
		return err
	}

	s.metrics.simLatency, err = meter.Float64Histogram(
		"simulation_latency_ms",
		metric.WithDescription("Simulation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.netMarginPct, err = meter.Float64Histogram(
		"simulation_net_margin_pct",
		metric.WithDescription("Net margin of accepted simulations, percent"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Simulate evaluates an opportunity and returns the optimal-size
// result, or a typed rejection explaining why it cannot be executed.
func (s *Simulator) Simulate(ctx context.Context, opp *domain.Opportunity) (*domain.SimulationResult, error) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.simulate",
		trace.WithAttributes(
			attribute.String("opportunity_id", opp.ID.String()),
			attribute.String("route", opp.Route.String()),
		),
	)
	defer span.End()

	start := time.Now()
	s.metrics.simulationsTotal.Add(ctx, 1)

	result, err := s.simulate(ctx, opp)
	s.metrics.simLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		s.metrics.rejectionsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("code", string(apperror.GetCode(err)))))
		span.SetStatus(codes.Error, string(apperror.GetCode(err)))
		return nil, err
	}

	margin, _ := result.NetMargin.Mul(decimal.NewFromInt(100)).Float64()
	s.metrics.netMarginPct.Record(ctx, margin)
	span.SetAttributes(
		attribute.String("trade_size", result.TradeSize.String()),
		attribute.String("net_profit", result.NetProfit.String()),
	)
	span.SetStatus(codes.Ok, "simulated")
	return result, nil
}

func (s *Simulator) simulate(ctx context.Context, opp *domain.Opportunity) (*domain.SimulationResult, error) {
	now := time.Now()
	route := opp.Route

	if route.Len() > s.cfg.MaxHops {
		return nil, apperror.New(apperror.CodeTooManyHops,
			apperror.WithContext(fmt.Sprintf("route has %d hops, max %d", route.Len(), s.cfg.MaxHops)))
	}
	if opp.Age(now) > s.cfg.FreshnessBound {
		return nil, apperror.New(apperror.CodeStaleInput,
			apperror.WithContext(fmt.Sprintf("opportunity %s is %s old, bound %s", opp.ID, opp.Age(now), s.cfg.FreshnessBound)))
	}

	quote, ok := s.catalog.Cheapest(route.ChainID())
	if !ok {
		return nil, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithContext(fmt.Sprintf("no flashloan provider on chain %d", route.ChainID())))
	}

	params := s.policy.Current()

	gasCostBase, err := s.gasCostInBase(ctx, route, params.GasMultiplier)
	if err != nil {
		return nil, err
	}

	lo, hi := s.sizeWindow(route, params.SizeMultiplier)
	if !hi.IsPositive() || hi.LessThanOrEqual(lo) {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext("size window collapsed for "+route.String()))
	}

	objective := func(size decimal.Decimal) (decimal.Decimal, RouteExecution) {
		raw := s.toRaw(route.Base(), size)
		if raw.Sign() <= 0 {
			return decimal.NewFromInt(-1), RouteExecution{}
		}
		exec := ExecuteRoute(route, raw)
		out := s.fromRaw(route.Base(), exec.AmountOut)
		fee := size.Mul(decimal.NewFromInt(quote.FeeBps)).Div(decimal.NewFromInt(bpsDenominator))
		net := out.Sub(size).Sub(fee).Sub(gasCostBase)
		return net, exec
	}

	bestSize, bestNet, bestExec := s.search(lo, hi, objective)

	// The search took wall time; the snapshot must still be within the
	// bound when the plan is finalized, not just when it was accepted.
	finalizedAt := time.Now()
	if opp.Age(finalizedAt) > s.cfg.FreshnessBound {
		return nil, apperror.New(apperror.CodeStaleInput,
			apperror.WithContext(fmt.Sprintf("opportunity %s went stale during sizing, %s old", opp.ID, opp.Age(finalizedAt))))
	}

	tolerance := params.SlippageToleranceBps
	if s.cfg.SlippageCeilingBps.LessThan(tolerance) {
		tolerance = s.cfg.SlippageCeilingBps
	}
	if bestExec.SlippageBps.GreaterThan(tolerance) {
		return nil, apperror.New(apperror.CodeExcessiveSlippage,
			apperror.WithContext(fmt.Sprintf("slippage %s bps exceeds tolerance %s bps", bestExec.SlippageBps.StringFixed(1), tolerance.StringFixed(1))))
	}

	netMargin := decimal.Zero
	if bestSize.IsPositive() {
		netMargin = bestNet.Div(bestSize)
	}
	if netMargin.LessThan(s.cfg.MinProfitThreshold) {
		return nil, apperror.New(apperror.CodeInsufficientProfit,
			apperror.WithContext(fmt.Sprintf("net margin %s below threshold %s", netMargin.StringFixed(6), s.cfg.MinProfitThreshold.StringFixed(6))))
	}

	expectedOut := s.fromRaw(route.Base(), bestExec.AmountOut)
	fee := bestSize.Mul(decimal.NewFromInt(quote.FeeBps)).Div(decimal.NewFromInt(bpsDenominator))

	return &domain.SimulationResult{
		Opportunity:  opp,
		TradeSize:    bestSize,
		ExpectedOut:  expectedOut,
		GrossProfit:  expectedOut.Sub(bestSize),
		FlashloanFee: fee,
		GasCostBase:  gasCostBase,
		NetProfit:    bestNet,
		NetMargin:    netMargin,
		SlippageBps:  bestExec.SlippageBps,
		ProviderID:   quote.ProviderID,
		GasEstimate:  uint64(flashloanOverheadGas + perHopGas*route.Len()),
		SimulatedAt:  finalizedAt,
	}, nil
}

// sizeWindow derives the search bounds from the shallowest pool the
// route touches, scaled by the policy's size multiplier.
func (s *Simulator) sizeWindow(route *domain.Route, sizeMult decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	depth := route.MinDepthInBase()
	loFrac, hiFrac := seedLoDefault, seedHiDefault
	if route.Len() == 3 {
		loFrac, hiFrac = seedLoTri, seedHiTri
	}
	if !sizeMult.IsPositive() {
		sizeMult = decimal.NewFromInt(1)
	}
	return depth.Mul(loFrac).Mul(sizeMult), depth.Mul(hiFrac).Mul(sizeMult)
}

// search runs a golden-section search over [lo, hi], then sweeps a
// geometric ladder across the same window. Net profit is unimodal in
// size for constant-product routes, but the ladder guards the cases
// where integer truncation makes the surface locally flat.
func (s *Simulator) search(lo, hi decimal.Decimal, f func(decimal.Decimal) (decimal.Decimal, RouteExecution)) (decimal.Decimal, decimal.Decimal, RouteExecution) {
	phi := decimal.NewFromFloat(0.6180339887498949)

	a, b := lo, hi
	x1 := b.Sub(b.Sub(a).Mul(phi))
	x2 := a.Add(b.Sub(a).Mul(phi))
	f1, e1 := f(x1)
	f2, e2 := f(x2)

	for i := 0; i < s.cfg.SearchIterations; i++ {
		if f1.GreaterThan(f2) {
			b, x2, f2, e2 = x2, x1, f1, e1
			x1 = b.Sub(b.Sub(a).Mul(phi))
			f1, e1 = f(x1)
		} else {
			a, x1, f1, e1 = x1, x2, f2, e2
			x2 = a.Add(b.Sub(a).Mul(phi))
			f2, e2 = f(x2)
		}
	}

	bestSize, bestNet, bestExec := x1, f1, e1
	if f2.GreaterThan(f1) {
		bestSize, bestNet, bestExec = x2, f2, e2
	}

	// Geometric ladder sweep over the full window. Step ratio is
	// computed in float; the ladder is a coarse guard, not the
	// optimizer.
	if s.cfg.LadderSteps > 1 && lo.IsPositive() {
		rf, _ := hi.Div(lo).Float64()
		step := decimal.NewFromFloat(math.Pow(rf, 1.0/float64(s.cfg.LadderSteps-1)))

		size := lo
		for i := 0; i < s.cfg.LadderSteps; i++ {
			net, exec := f(size)
			if net.GreaterThan(bestNet) {
				bestSize, bestNet, bestExec = size, net, exec
			}
			size = size.Mul(step)
		}
	}

	return bestSize, bestNet, bestExec
}

// gasCostInBase converts the route's gas budget into the base asset.
func (s *Simulator) gasCostInBase(ctx context.Context, route *domain.Route, gasMult decimal.Decimal) (decimal.Decimal, error) {
	gasPriceWei, err := s.gas.GasPrice(ctx, route.ChainID())
	if err != nil {
		return decimal.Zero, err
	}

	gasUnits := int64(flashloanOverheadGas + perHopGas*route.Len())
	totalWei := new(big.Int).Mul(gasPriceWei, big.NewInt(gasUnits))
	gasNative := decimal.NewFromBigInt(totalWei, -18)
	if gasMult.IsPositive() {
		gasNative = gasNative.Mul(gasMult)
	}
	if s.cfg.GasPriceMultiplier.IsPositive() {
		gasNative = gasNative.Mul(s.cfg.GasPriceMultiplier)
	}

	nativeSymbol := asset.WrappedNativeSymbol(route.ChainID())
	native, ok := s.registry.GetBySymbolAndChain(nativeSymbol, route.ChainID())
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("no %s registered on chain %d for gas conversion", nativeSymbol, route.ChainID())))
	}
	nativeUSD, _, okNative := s.prices.Get(native.ID())
	baseUSD, _, okBase := s.prices.Get(route.Base().ID())
	if !okNative || !okBase || baseUSD.IsZero() {
		return decimal.Zero, apperror.New(apperror.CodeStaleInput,
			apperror.WithContext("missing reference prices for gas conversion"))
	}

	return gasNative.Mul(nativeUSD).Div(baseUSD), nil
}

// toRaw converts a display amount of a to its smallest-unit integer.
func (s *Simulator) toRaw(a *asset.Asset, d decimal.Decimal) *big.Int {
	return d.Shift(int32(a.Decimals())).Truncate(0).BigInt()
}

// fromRaw converts a smallest-unit integer of a to a display amount.
func (s *Simulator) fromRaw(a *asset.Asset, raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(a.Decimals()))
}
