package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/logger"
)

const (
	tracerName = "market"
	meterName  = "market"
)

// SnapshotConfig holds SnapshotService tuning. FetchTimeout bounds every
// single pool read so one hung RPC endpoint cannot stall a refresh pass.
// ChainIntervals overrides the poll cadence per chain; chains without an
// override tick at PollInterval.
type SnapshotConfig struct {
	PollInterval   time.Duration
	FetchTimeout   time.Duration
	ChainIntervals map[uint64]time.Duration
	Concurrency    int
}

type snapshotMetrics struct {
	refreshTotal   metric.Int64Counter
	refreshErrors  metric.Int64Counter
	refreshLatency metric.Float64Histogram
	poolsTracked   metric.Int64Gauge
}

// SnapshotService maintains the latest observation of every monitored
// pool. Polling and push feeds both land here; readers always get a
// consistent point-in-time snapshot.
type SnapshotService struct {
	source PoolSource
	specs  []PoolSpec
	cfg    SnapshotConfig
	logger logger.LoggerInterface

	mu    sync.RWMutex
	pools map[domain.PoolID]*domain.PoolState

	tracer  trace.Tracer
	metrics *snapshotMetrics
}

// NewSnapshotService creates a SnapshotService over the given specs.
func NewSnapshotService(source PoolSource, specs []PoolSpec, cfg SnapshotConfig, log logger.LoggerInterface) (*SnapshotService, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	s := &SnapshotService{
		source: source,
		specs:  specs,
		cfg:    cfg,
		logger: log,
		pools:  make(map[domain.PoolID]*domain.PoolState, len(specs)),
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SnapshotService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &snapshotMetrics{}

	s.metrics.refreshTotal, err = meter.Int64Counter(
		"market_refresh_total",
		metric.WithDescription("Total pool refresh attempts"),
	)
	if err != nil {
		return err
	}

	s.metrics.refreshErrors, err = meter.Int64Counter(
		"market_refresh_errors_total",
		metric.WithDescription("Pool refresh failures"),
	)
	if err != nil {
		return err
	}

	s.metrics.refreshLatency, err = meter.Float64Histogram(
		"market_refresh_latency_ms",
		metric.WithDescription("Full refresh pass latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.poolsTracked, err = meter.Int64Gauge(
		"market_pools_tracked",
		metric.WithDescription("Number of pools with a current observation"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Refresh reads every configured pool once. A pool that fails to read
// keeps its previous observation; freshness filtering downstream
// decides whether that observation is still usable.
func (s *SnapshotService) Refresh(ctx context.Context) error {
	return s.refreshSpecs(ctx, s.specs)
}

// RefreshChain reads every configured pool on one chain.
func (s *SnapshotService) RefreshChain(ctx context.Context, chainID uint64) error {
	var specs []PoolSpec
	for _, spec := range s.specs {
		if spec.ID.ChainID == chainID {
			specs = append(specs, spec)
		}
	}
	return s.refreshSpecs(ctx, specs)
}

func (s *SnapshotService) refreshSpecs(ctx context.Context, specs []PoolSpec) error {
	ctx, span := s.tracer.Start(ctx, "market.refresh",
		trace.WithAttributes(attribute.Int("pool_count", len(specs))),
	)
	defer span.End()

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			s.metrics.refreshTotal.Add(gctx, 1)
			fetchCtx, cancel := context.WithTimeout(gctx, s.cfg.FetchTimeout)
			state, err := s.source.Fetch(fetchCtx, spec)
			cancel()
			if err != nil {
				s.metrics.refreshErrors.Add(gctx, 1)
				s.logger.Warn(gctx, "pool refresh failed",
					"pool", spec.ID.String(),
					"error", err,
				)
				return nil // keep scanning the rest
			}
			s.Apply(state)
			return nil
		})
	}

	err := g.Wait()
	s.metrics.refreshLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	s.metrics.poolsTracked.Record(ctx, int64(s.trackedCount()))
	return err
}

// Apply stores a pool observation. Out-of-order updates are dropped:
// an observation older than the stored one never overwrites it.
func (s *SnapshotService) Apply(state *domain.PoolState) {
	if state == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pools[state.ID()]; ok {
		if state.BlockNumber() < prev.BlockNumber() {
			return
		}
		if state.BlockNumber() == prev.BlockNumber() && !state.ObservedAt().After(prev.ObservedAt()) {
			return
		}
	}
	s.pools[state.ID()] = state
}

// Snapshot returns a point-in-time view of all tracked pools.
func (s *SnapshotService) Snapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pools := make([]*domain.PoolState, 0, len(s.pools))
	for _, p := range s.pools {
		pools = append(pools, p)
	}
	return domain.NewSnapshot(pools, time.Now())
}

// Run refreshes until ctx is done, one loop per chain so each chain
// ticks at its own configured interval. The first refresh happens
// immediately so startup does not wait a full interval for data.
func (s *SnapshotService) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn(ctx, "initial market refresh failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, chainID := range s.chainIDs() {
		chainID := chainID
		interval := s.cfg.PollInterval
		if iv, ok := s.cfg.ChainIntervals[chainID]; ok && iv > 0 {
			interval = iv
		}
		g.Go(func() error {
			return s.runChain(gctx, chainID, interval)
		})
	}
	return g.Wait()
}

func (s *SnapshotService) runChain(ctx context.Context, chainID uint64, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RefreshChain(ctx, chainID); err != nil && ctx.Err() == nil {
				s.logger.Warn(ctx, "market refresh failed",
					"chain_id", chainID,
					"error", err,
				)
			}
		}
	}
}

func (s *SnapshotService) chainIDs() []uint64 {
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, spec := range s.specs {
		if !seen[spec.ID.ChainID] {
			seen[spec.ID.ChainID] = true
			ids = append(ids, spec.ID.ChainID)
		}
	}
	return ids
}

func (s *SnapshotService) trackedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pools)
}
