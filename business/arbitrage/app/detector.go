package app

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
	marketDomain "github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/logger"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// DetectorConfig holds detection thresholds and bounds.
type DetectorConfig struct {
	MinProfitThreshold decimal.Decimal // fraction, e.g. 0.005
	MinLiquidityUSD    decimal.Decimal
	FreshnessBound     time.Duration
	MaxHops            int
	MaxCandidates      int
	BaseAssets         []string // symbols; resolved per chain at detect time
}

type detectorMetrics struct {
	passesTotal     metric.Int64Counter
	candidatesFound metric.Int64Counter
	detectLatency   metric.Float64Histogram
	poolsConsidered metric.Int64Gauge
}

// Detector finds profitable cycles in a market snapshot. It searches
// depth-first from each base asset, bounded by MaxHops, compounding
// fee-adjusted mid rates; a path back to its base with a compounded
// rate above the threshold is a candidate.
type Detector struct {
	cfg      DetectorConfig
	registry *asset.Registry
	prices   *asset.PriceIndex
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *detectorMetrics
}

// NewDetector creates a Detector.
func NewDetector(cfg DetectorConfig, registry *asset.Registry, prices *asset.PriceIndex, log logger.LoggerInterface) (*Detector, error) {
	d := &Detector{
		cfg:      cfg,
		registry: registry,
		prices:   prices,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.passesTotal, err = meter.Int64Counter(
		"detector_passes_total",
		metric.WithDescription("Detection passes over snapshots"),
	)
	if err != nil {
		return err
	}

	d.metrics.candidatesFound, err = meter.Int64Counter(
		"detector_candidates_total",
		metric.WithDescription("Candidate cycles found"),
	)
	if err != nil {
		return err
	}

	d.metrics.detectLatency, err = meter.Float64Histogram(
		"detector_latency_ms",
		metric.WithDescription("Detection pass latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	d.metrics.poolsConsidered, err = meter.Int64Gauge(
		"detector_pools_considered",
		metric.WithDescription("Pools surviving freshness and liquidity filters"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Detect runs one pass over the snapshot and returns ranked
// candidates, best gross rate first, at most MaxCandidates. Stale and
// illiquid pools are filtered before the graph is built, so a route
// can never contain one.
func (d *Detector) Detect(ctx context.Context, snapshot *marketDomain.Snapshot) []*domain.Opportunity {
	ctx, span := d.tracer.Start(ctx, "arbitrage.detect",
		trace.WithAttributes(attribute.Int("snapshot_pools", snapshot.Len())),
	)
	defer span.End()

	start := time.Now()
	now := time.Now()
	d.metrics.passesTotal.Add(ctx, 1)

	eligible := snapshot.
		Fresh(now, d.cfg.FreshnessBound).
		Liquid(d.prices, d.cfg.MinLiquidityUSD)
	d.metrics.poolsConsidered.Record(ctx, int64(eligible.Len()))

	var all []*domain.Opportunity
	for _, chainID := range sortedChainIDs(eligible) {
		all = append(all, d.detectOnChain(eligible.OnChain(chainID), chainID, now)...)
	}

	// Rank: best gross rate first, route key as the deterministic
	// tie-break.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].GrossRate.Equal(all[j].GrossRate) {
			return all[i].GrossRate.GreaterThan(all[j].GrossRate)
		}
		return all[i].Route.Key() < all[j].Route.Key()
	})
	if d.cfg.MaxCandidates > 0 && len(all) > d.cfg.MaxCandidates {
		all = all[:d.cfg.MaxCandidates]
	}

	d.metrics.candidatesFound.Add(ctx, int64(len(all)))
	d.metrics.detectLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(attribute.Int("candidates", len(all)))

	if len(all) > 0 {
		d.logger.Info(ctx, "opportunities detected",
			"count", len(all),
			"best_margin", all[0].GrossMargin.Mul(decimal.NewFromInt(100)).StringFixed(3)+"%",
			"best_route", all[0].Route.String(),
		)
	}

	return all
}

func (d *Detector) detectOnChain(snapshot *marketDomain.Snapshot, chainID uint64, now time.Time) []*domain.Opportunity {
	graph := buildGraph(snapshot)
	threshold := decimal.NewFromInt(1).Add(d.cfg.MinProfitThreshold)

	seen := make(map[string]struct{})
	var found []*domain.Opportunity

	for _, symbol := range d.cfg.BaseAssets {
		base, ok := d.registry.GetBySymbolAndChain(symbol, chainID)
		if !ok {
			continue
		}

		search := cycleSearch{
			graph:     graph,
			base:      base,
			maxHops:   d.cfg.MaxHops,
			threshold: threshold,
			onCycle: func(hops []edge, rate decimal.Decimal) {
				route := toRoute(hops, d.cfg.MaxHops)
				if route == nil {
					return
				}
				if _, dup := seen[route.Key()]; dup {
					return
				}
				seen[route.Key()] = struct{}{}

				risk := domain.AssessRisk(route, rate.Sub(decimal.NewFromInt(1)),
					d.prices, d.cfg.MinLiquidityUSD, d.cfg.FreshnessBound, now)
				found = append(found, domain.NewOpportunity(route, rate, risk, snapshot.TakenAt()))
			},
		}
		search.run()
	}

	return found
}

// cycleSearch is a bounded DFS from one base asset.
type cycleSearch struct {
	graph     *tokenGraph
	base      *asset.Asset
	maxHops   int
	threshold decimal.Decimal
	onCycle   func(hops []edge, rate decimal.Decimal)

	path      []edge
	visited   map[asset.AssetID]struct{}
	usedPools map[string]struct{}
}

func (s *cycleSearch) run() {
	s.visited = map[asset.AssetID]struct{}{s.base.ID(): {}}
	s.usedPools = make(map[string]struct{})
	s.dfs(s.base.ID(), decimal.NewFromInt(1))
}

func (s *cycleSearch) dfs(at asset.AssetID, rate decimal.Decimal) {
	for _, e := range s.graph.out(at) {
		poolKey := e.pool.ID().String()
		if _, used := s.usedPools[poolKey]; used {
			continue
		}

		next := rate.Mul(e.rate)

		if e.to.ID().Equals(s.base.ID()) {
			if len(s.path)+1 >= 2 && next.GreaterThanOrEqual(s.threshold) {
				s.path = append(s.path, e)
				s.onCycle(s.path, next)
				s.path = s.path[:len(s.path)-1]
			}
			continue
		}

		if len(s.path)+1 >= s.maxHops {
			continue // closing hop would exceed the bound
		}
		if _, ok := s.visited[e.to.ID()]; ok {
			continue
		}

		s.path = append(s.path, e)
		s.visited[e.to.ID()] = struct{}{}
		s.usedPools[poolKey] = struct{}{}

		s.dfs(e.to.ID(), next)

		delete(s.usedPools, poolKey)
		delete(s.visited, e.to.ID())
		s.path = s.path[:len(s.path)-1]
	}
}

func toRoute(hops []edge, maxHops int) *domain.Route {
	domainHops := make([]domain.Hop, 0, len(hops))
	for _, e := range hops {
		domainHops = append(domainHops, domain.Hop{Pool: e.pool, In: e.from, Out: e.to})
	}
	route, err := domain.NewRoute(domainHops, maxHops)
	if err != nil {
		return nil
	}
	return route
}

func sortedChainIDs(snapshot *marketDomain.Snapshot) []uint64 {
	ids := snapshot.ChainIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
