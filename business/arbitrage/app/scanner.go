package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flasharb/business/arbitrage/domain"
	marketApp "github.com/fd1az/flasharb/business/market/app"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/logger"
)

// ScannerConfig holds scan loop settings.
type ScannerConfig struct {
	Interval     time.Duration
	Concurrency  int
	MaxRiskScore decimal.Decimal
	AutoExecute  bool
}

// Scanner drives the detection pipeline: snapshot, detect, gate on
// risk, simulate, and hand survivors to the execution gateway.
type Scanner struct {
	cfg       ScannerConfig
	snapshots *marketApp.SnapshotService
	detector  *Detector
	simulator *Simulator
	executor  ExecutionGateway
	reporter  Reporter
	stats     *domain.Stats
	logger    logger.LoggerInterface
}

// NewScanner creates a Scanner.
func NewScanner(
	cfg ScannerConfig,
	snapshots *marketApp.SnapshotService,
	detector *Detector,
	simulator *Simulator,
	executor ExecutionGateway,
	reporter Reporter,
	stats *domain.Stats,
	log logger.LoggerInterface,
) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Scanner{
		cfg:       cfg,
		snapshots: snapshots,
		detector:  detector,
		simulator: simulator,
		executor:  executor,
		reporter:  reporter,
		stats:     stats,
		logger:    log,
	}
}

// Run scans on the configured interval until ctx is done.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.reporter.Start(ctx); err != nil {
		return err
	}
	defer s.reporter.Stop()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.ScanOnce(ctx)
			s.reporter.ReportStats(s.stats.Snapshot())
		}
	}
}

// ScanOnce runs a single pipeline pass.
func (s *Scanner) ScanOnce(ctx context.Context) {
	snapshot := s.snapshots.Snapshot()
	if snapshot.Len() == 0 {
		return
	}

	opportunities := s.detector.Detect(ctx, snapshot)
	s.stats.RecordDetected(len(opportunities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, opp := range opportunities {
		opp := opp
		s.reporter.ReportOpportunity(opp)

		if !opp.Risk.Acceptable(s.cfg.MaxRiskScore) {
			s.logger.Debug(gctx, "opportunity rejected on risk",
				"opportunity_id", opp.ID.String(),
				"score", opp.Risk.Score.String(),
			)
			s.stats.RecordRejected()
			continue
		}

		g.Go(func() error {
			s.simulateAndExecute(gctx, opp)
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Scanner) simulateAndExecute(ctx context.Context, opp *domain.Opportunity) {
	result, err := s.simulator.Simulate(ctx, opp)
	if err != nil {
		s.stats.RecordRejected()
		s.logger.Debug(ctx, "simulation rejected",
			"opportunity_id", opp.ID.String(),
			"code", string(apperror.GetCode(err)),
			"error", err,
		)
		return
	}

	s.stats.RecordSimulated()
	s.reporter.ReportSimulation(result)

	if !s.cfg.AutoExecute || s.executor == nil {
		return
	}

	s.stats.RecordExecuted()
	if err := s.executor.Execute(ctx, result); err != nil {
		s.logger.Warn(ctx, "execution handoff failed",
			"opportunity_id", opp.ID.String(),
			"error", err,
		)
	}
}
