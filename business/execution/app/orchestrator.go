package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbApp "github.com/fd1az/flasharb/business/arbitrage/app"
	arbDomain "github.com/fd1az/flasharb/business/arbitrage/domain"
	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/logger"
)

const (
	tracerName = "execution"
	meterName  = "execution"
)

// OrchestratorConfig holds execution settings.
type OrchestratorConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	ConfirmTimeout time.Duration
	FreshnessBound time.Duration
}

type orchestratorMetrics struct {
	attemptsTotal  metric.Int64Counter
	outcomesTotal  metric.Int64Counter
	confirmLatency metric.Float64Histogram
	realizedUSD    metric.Float64Histogram
}

var _ arbApp.ExecutionGateway = (*Orchestrator)(nil)

// Orchestrator drives the attempt state machine for accepted trade
// plans. It holds exclusive submission rights per chain: one in-flight
// unconfirmed transaction per signer, later plans queue until the
// prior one resolves.
type Orchestrator struct {
	cfg       OrchestratorConfig
	selector  *Selector
	submitter Submitter
	store     AttemptStore
	events    EventPublisher
	prices    *asset.PriceIndex
	stats     *arbDomain.Stats
	logger    logger.LoggerInterface

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	locks    map[uint64]chan struct{}

	tracer  trace.Tracer
	metrics *orchestratorMetrics
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	cfg OrchestratorConfig,
	selector *Selector,
	submitter Submitter,
	store AttemptStore,
	events EventPublisher,
	prices *asset.PriceIndex,
	stats *arbDomain.Stats,
	log logger.LoggerInterface,
) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:       cfg,
		selector:  selector,
		submitter: submitter,
		store:     store,
		events:    events,
		prices:    prices,
		stats:     stats,
		logger:    log,
		inflight:  make(map[uuid.UUID]struct{}),
		locks:     make(map[uint64]chan struct{}),
		tracer:    otel.Tracer(tracerName),
	}
	if err := o.initMetrics(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Orchestrator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &orchestratorMetrics{}

	o.metrics.attemptsTotal, err = meter.Int64Counter(
		"execution_attempts_total",
		metric.WithDescription("Execution attempts created"),
	)
	if err != nil {
		return err
	}

	o.metrics.outcomesTotal, err = meter.Int64Counter(
		"execution_outcomes_total",
		metric.WithDescription("Terminal attempt outcomes by status"),
	)
	if err != nil {
		return err
	}

	o.metrics.confirmLatency, err = meter.Float64Histogram(
		"execution_confirm_latency_ms",
		metric.WithDescription("Submission to finality latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.metrics.realizedUSD, err = meter.Float64Histogram(
		"execution_realized_profit_usd",
		metric.WithDescription("Realized profit of confirmed attempts in USD"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Execute runs a trade plan to a terminal attempt state. It is
// idempotent per plan: a plan that already settled, or is currently in
// flight, is not dispatched again.
func (o *Orchestrator) Execute(ctx context.Context, plan *arbDomain.SimulationResult) error {
	ctx, span := o.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("plan_id", plan.Opportunity.ID.String()),
			attribute.Int64("chain_id", int64(plan.Opportunity.ChainID())),
		),
	)
	defer span.End()

	planID := plan.Opportunity.ID
	chainID := plan.Opportunity.ChainID()

	if err := o.claimPlan(ctx, planID); err != nil {
		span.SetStatus(codes.Error, string(apperror.GetCode(err)))
		return err
	}
	defer o.releasePlan(planID)

	// Exclusive submission rights per chain. Blocks until the prior
	// in-flight transaction resolves or ctx is cancelled.
	release, err := o.acquireChain(ctx, chainID)
	if err != nil {
		span.SetStatus(codes.Error, "queue wait cancelled")
		return err
	}
	defer release()

	err = o.run(ctx, plan)
	if err != nil {
		span.SetStatus(codes.Error, string(apperror.GetCode(err)))
		return err
	}
	span.SetStatus(codes.Ok, "resolved")
	return nil
}

// claimPlan enforces at-most-once dispatch per plan.
func (o *Orchestrator) claimPlan(ctx context.Context, planID uuid.UUID) error {
	o.mu.Lock()
	if _, busy := o.inflight[planID]; busy {
		o.mu.Unlock()
		return apperror.New(apperror.CodeSignerBusy,
			apperror.WithContext(fmt.Sprintf("plan %s already in flight", planID)))
	}
	o.inflight[planID] = struct{}{}
	o.mu.Unlock()

	prior, err := o.store.ByPlan(ctx, planID)
	if err != nil {
		o.releasePlan(planID)
		return err
	}
	for _, attempt := range prior {
		if attempt.Status.Settled() {
			o.releasePlan(planID)
			return apperror.New(apperror.CodePlanAlreadyFinal,
				apperror.WithContext(fmt.Sprintf("plan %s already settled as %s", planID, attempt.Status)))
		}
	}
	return nil
}

func (o *Orchestrator) releasePlan(planID uuid.UUID) {
	o.mu.Lock()
	delete(o.inflight, planID)
	o.mu.Unlock()
}

func (o *Orchestrator) acquireChain(ctx context.Context, chainID uint64) (func(), error) {
	o.mu.Lock()
	lock, ok := o.locks[chainID]
	if !ok {
		lock = make(chan struct{}, 1)
		o.locks[chainID] = lock
	}
	o.mu.Unlock()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run creates attempts until one reaches a terminal state or the retry
// budget is spent. Only pre-submission failures retry; once a
// transaction is on the wire its outcome is observed, never raced by a
// second submission.
func (o *Orchestrator) run(ctx context.Context, plan *arbDomain.SimulationResult) error {
	backoff := o.cfg.InitialBackoff
	var lastErr error

	for retry := 0; retry <= o.cfg.MaxRetries; retry++ {
		// Staleness is measured from the market snapshot the plan was
		// built on, not from when the simulator finished with it.
		if age := plan.Opportunity.Age(time.Now()); age > o.cfg.FreshnessBound {
			return apperror.New(apperror.CodeStaleInput,
				apperror.WithContext(fmt.Sprintf("plan %s built on a snapshot %s old", plan.Opportunity.ID, age)),
				apperror.WithCause(lastErr),
			)
		}

		submitted, err := o.attempt(ctx, plan, retry)
		if submitted || err == nil {
			return err
		}
		lastErr = err

		o.logger.Warn(ctx, "attempt failed before submission",
			"plan_id", plan.Opportunity.ID.String(),
			"retry", retry,
			"error", err,
		)

		if retry == o.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > o.cfg.MaxBackoff {
			backoff = o.cfg.MaxBackoff
		}
	}

	return lastErr
}

// attempt runs one pass of the state machine. The bool reports whether
// the transaction reached the chain; submitted attempts are never
// retried here regardless of outcome.
func (o *Orchestrator) attempt(ctx context.Context, plan *arbDomain.SimulationResult, retry int) (bool, error) {
	chainID := plan.Opportunity.ChainID()
	attempt := domain.NewAttempt(plan.Opportunity.ID, chainID, plan.Opportunity.Route.Base().Symbol(), retry)
	o.metrics.attemptsTotal.Add(ctx, 1)

	if err := o.store.Save(ctx, attempt); err != nil {
		return false, err
	}

	amountUSD, gasUSD := o.planUSD(plan)
	provider, err := o.selector.Select(chainID, amountUSD, gasUSD)
	if err != nil {
		o.failBeforeSubmission(ctx, attempt, err)
		return false, err
	}
	if err := attempt.SelectProvider(provider.ID); err != nil {
		return false, err
	}
	if err := o.store.Save(ctx, attempt); err != nil {
		return false, err
	}

	handle, err := o.submitter.Submit(ctx, plan, provider)
	if err != nil {
		o.failBeforeSubmission(ctx, attempt, err)
		return false, err
	}
	if err := attempt.MarkSubmitted(handle.TxHash, time.Now()); err != nil {
		return true, err
	}
	if err := o.store.Save(ctx, attempt); err != nil {
		return true, err
	}

	o.logger.Info(ctx, "transaction submitted",
		"plan_id", plan.Opportunity.ID.String(),
		"attempt_id", attempt.ID.String(),
		"provider", provider.ID,
		"tx_hash", handle.TxHash.Hex(),
	)

	return true, o.observe(ctx, attempt, handle, plan)
}

// observe waits for finality and resolves the attempt. On a local
// timeout the chain is re-queried once; a transaction can confirm
// after the window.
func (o *Orchestrator) observe(ctx context.Context, attempt *domain.Attempt, handle SubmissionHandle, plan *arbDomain.SimulationResult) error {
	waitCtx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
	defer cancel()

	outcome, err := o.submitter.Await(waitCtx, handle, plan)
	if err != nil {
		found := false
		outcome, found, err = o.submitter.Check(ctx, handle, plan)
		if err != nil || !found {
			if terr := attempt.TimeOut(time.Now()); terr != nil {
				return terr
			}
			o.resolve(ctx, attempt, plan)
			return apperror.New(apperror.CodeConfirmTimeout,
				apperror.WithContext(fmt.Sprintf("tx %s unresolved after %s", handle.TxHash.Hex(), o.cfg.ConfirmTimeout)),
				apperror.WithCause(err),
			)
		}
	}

	if outcome.Reverted {
		if err := attempt.Revert(outcome.GasUsed, outcome.ResolvedAt); err != nil {
			return err
		}
	} else {
		if err := attempt.Confirm(outcome.RealizedBase, outcome.GasUsed, outcome.ResolvedAt); err != nil {
			return err
		}
	}
	o.resolve(ctx, attempt, plan)
	return nil
}

// resolve persists and reports a terminal attempt.
func (o *Orchestrator) resolve(ctx context.Context, attempt *domain.Attempt, plan *arbDomain.SimulationResult) {
	if err := o.store.Save(ctx, attempt); err != nil {
		o.logger.Error(ctx, "failed to persist terminal attempt",
			"attempt_id", attempt.ID.String(),
			"error", err,
		)
	}
	if err := o.events.PublishAttempt(ctx, attempt); err != nil {
		o.logger.Warn(ctx, "failed to publish attempt event",
			"attempt_id", attempt.ID.String(),
			"error", err,
		)
	}

	o.metrics.outcomesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", string(attempt.Status))))
	if !attempt.SubmittedAt.IsZero() && !attempt.ResolvedAt.IsZero() {
		o.metrics.confirmLatency.Record(ctx,
			float64(attempt.ResolvedAt.Sub(attempt.SubmittedAt).Milliseconds()))
	}

	realizedUSD, feesUSD, gasUSD := o.outcomeUSD(attempt, plan)
	if attempt.Status == domain.StatusConfirmed {
		usd, _ := realizedUSD.Float64()
		o.metrics.realizedUSD.Record(ctx, usd)
	}
	o.stats.RecordOutcome(attempt.Succeeded(), realizedUSD, feesUSD, gasUSD)

	o.logger.Info(ctx, "attempt resolved",
		"attempt_id", attempt.ID.String(),
		"plan_id", attempt.PlanID.String(),
		"status", string(attempt.Status),
		"gas_used", attempt.GasUsed,
		"realized_usd", realizedUSD.StringFixed(2),
	)
}

func (o *Orchestrator) failBeforeSubmission(ctx context.Context, attempt *domain.Attempt, cause error) {
	attempt.Fail(cause.Error())
	if err := o.store.Save(ctx, attempt); err != nil {
		o.logger.Error(ctx, "failed to persist aborted attempt",
			"attempt_id", attempt.ID.String(),
			"error", err,
		)
	}
	if err := o.events.PublishAttempt(ctx, attempt); err != nil {
		o.logger.Warn(ctx, "failed to publish attempt event",
			"attempt_id", attempt.ID.String(),
			"error", err,
		)
	}
}

// planUSD values the plan's notional and gas budget in USD.
func (o *Orchestrator) planUSD(plan *arbDomain.SimulationResult) (decimal.Decimal, decimal.Decimal) {
	base := plan.Opportunity.Route.Base()
	baseUSD, _, ok := o.prices.Get(base.ID())
	if !ok {
		// Without a quote the base is assumed to be a dollar
		// stablecoin; selection still works, depth checks get no
		// haircut.
		baseUSD = decimal.NewFromInt(1)
	}
	return plan.TradeSize.Mul(baseUSD), plan.GasCostBase.Mul(baseUSD)
}

// outcomeUSD values a terminal attempt for the stats ledger.
func (o *Orchestrator) outcomeUSD(attempt *domain.Attempt, plan *arbDomain.SimulationResult) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	base := plan.Opportunity.Route.Base()
	baseUSD, _, ok := o.prices.Get(base.ID())
	if !ok {
		baseUSD = decimal.NewFromInt(1)
	}

	realized := decimal.Zero
	if attempt.RealizedProfit != nil {
		realized = attempt.RealizedProfit.Mul(baseUSD)
	}
	fees := plan.FlashloanFee.Mul(baseUSD)
	gas := plan.GasCostBase.Mul(baseUSD)
	return realized, fees, gas
}
