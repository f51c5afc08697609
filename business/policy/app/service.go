// Package app contains the policy context application services.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	executionApp "github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/policy/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/logger"
)

const (
	tracerName = "policy"
	meterName  = "policy"
)

// Params are the trading knobs the simulator reads on every plan.
type Params struct {
	SizeMultiplier       decimal.Decimal
	SlippageToleranceBps decimal.Decimal
	GasMultiplier        decimal.Decimal
}

type serviceMetrics struct {
	version        metric.Int64Gauge
	trainingsTotal metric.Int64Counter
}

// Service holds the active policy snapshot and retrains it from
// execution history. Reads go through an atomic pointer: the hot path
// never blocks on a training run, and a scan cycle always sees one
// consistent version.
type Service struct {
	cfg      config.PolicyConfig
	store    executionApp.AttemptStore
	baseline *domain.Snapshot
	current  atomic.Pointer[domain.Snapshot]
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewService creates a Service with the baseline snapshot active.
func NewService(cfg config.PolicyConfig, baseline *domain.Snapshot, store executionApp.AttemptStore, log logger.LoggerInterface) (*Service, error) {
	s := &Service{
		cfg:      cfg,
		store:    store,
		baseline: baseline,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	s.current.Store(baseline)
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.version, err = meter.Int64Gauge(
		"policy_snapshot_version",
		metric.WithDescription("Version of the active policy snapshot"),
	)
	if err != nil {
		return err
	}

	s.metrics.trainingsTotal, err = meter.Int64Counter(
		"policy_trainings_total",
		metric.WithDescription("Training runs by result"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Current returns the active snapshot's trading parameters.
func (s *Service) Current() Params {
	snap := s.current.Load()
	return Params{
		SizeMultiplier:       snap.SizeMultiplier,
		SlippageToleranceBps: snap.SlippageToleranceBps,
		GasMultiplier:        snap.GasMultiplier,
	}
}

// Snapshot returns the full active snapshot.
func (s *Service) Snapshot() *domain.Snapshot {
	return s.current.Load()
}

// ProviderWeight reports the active routing weight for a flashloan
// provider, neutral for providers without settled history.
func (s *Service) ProviderWeight(providerID string) decimal.Decimal {
	return s.current.Load().ProviderWeight(providerID)
}

// Train retrains the policy from recent execution history and commits
// the successor snapshot. On any failure the active snapshot stays in
// place and trading continues unchanged.
func (s *Service) Train(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "policy.train")
	defer span.End()

	history, err := s.store.Recent(ctx, s.cfg.HistoryWindow)
	if err != nil {
		s.recordTraining(ctx, span, "store_error")
		return err
	}
	if len(history) < s.cfg.MinAttempts {
		err := apperror.New(apperror.CodeInsufficientData,
			apperror.WithContext(fmt.Sprintf("%d attempts recorded, need %d", len(history), s.cfg.MinAttempts)))
		s.recordTraining(ctx, span, "insufficient_data")
		return err
	}

	prev := s.current.Load()
	next, err := Train(history, prev, s.baseline, time.Now())
	if err != nil {
		s.recordTraining(ctx, span, "failed")
		s.logger.Warn(ctx, "policy training failed, previous snapshot stays active",
			"version", prev.Version,
			"error", err,
		)
		return err
	}

	s.current.Store(next)
	s.metrics.version.Record(ctx, next.Version)
	s.recordTraining(ctx, span, "committed")
	span.SetStatus(codes.Ok, "committed")

	s.logger.Info(ctx, "policy snapshot committed",
		"version", next.Version,
		"trained_on", next.TrainedOnAttempts,
		"size_multiplier", next.SizeMultiplier.StringFixed(3),
		"slippage_tolerance_bps", next.SlippageToleranceBps.StringFixed(1),
		"gas_multiplier", next.GasMultiplier.StringFixed(3),
		"min_net_margin", next.MinNetMargin.StringFixed(6),
	)
	return nil
}

func (s *Service) recordTraining(ctx context.Context, span trace.Span, result string) {
	s.metrics.trainingsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)))
	if result != "committed" {
		span.SetStatus(codes.Error, result)
	}
}
