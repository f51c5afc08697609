// Package rpc implements the PoolSource port against on-chain pair contracts.
package rpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flasharb/business/market/app"
	"github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/chainclient"
	"github.com/fd1az/flasharb/internal/circuitbreaker"
	"github.com/fd1az/flasharb/internal/logger"
)

const (
	tracerName = "market.rpc"
	meterName  = "market.rpc"
)

// Ensure Watcher implements PoolSource.
var _ app.PoolSource = (*Watcher)(nil)

type watcherMetrics struct {
	readsTotal  metric.Int64Counter
	readErrors  metric.Int64Counter
	readLatency metric.Float64Histogram
}

// Watcher reads pool reserves over RPC. One circuit breaker per chain;
// a flapping RPC endpoint on one chain must not block reads on the
// others.
type Watcher struct {
	chains   *chainclient.Registry
	pairABI  abi.ABI
	breakers map[uint64]*circuitbreaker.CircuitBreaker[[]byte]
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *watcherMetrics
}

// NewWatcher creates a Watcher over the registered chains.
func NewWatcher(chains *chainclient.Registry, log logger.LoggerInterface) (*Watcher, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	w := &Watcher{
		chains:   chains,
		pairABI:  parsedABI,
		breakers: make(map[uint64]*circuitbreaker.CircuitBreaker[[]byte]),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	for _, chainID := range chains.ChainIDs() {
		cbCfg := circuitbreaker.DefaultConfig(fmt.Sprintf("pool-reader-%d", chainID))
		cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "pool reader breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}
		w.breakers[chainID] = circuitbreaker.New[[]byte](cbCfg)
	}

	if err := w.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return w, nil
}

func (w *Watcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &watcherMetrics{}

	w.metrics.readsTotal, err = meter.Int64Counter(
		"pool_reads_total",
		metric.WithDescription("Total getReserves calls"),
	)
	if err != nil {
		return err
	}

	w.metrics.readErrors, err = meter.Int64Counter(
		"pool_read_errors_total",
		metric.WithDescription("Failed getReserves calls"),
	)
	if err != nil {
		return err
	}

	w.metrics.readLatency, err = meter.Float64Histogram(
		"pool_read_latency_ms",
		metric.WithDescription("getReserves call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Fetch reads the pool's current reserves and builds a PoolState.
func (w *Watcher) Fetch(ctx context.Context, spec app.PoolSpec) (*domain.PoolState, error) {
	ctx, span := w.tracer.Start(ctx, "market.fetch_pool",
		trace.WithAttributes(
			attribute.String("pool", spec.ID.String()),
			attribute.Int64("chain_id", int64(spec.ID.ChainID)),
		),
	)
	defer span.End()

	start := time.Now()
	w.metrics.readsTotal.Add(ctx, 1)

	client, err := w.chains.Get(spec.ID.ChainID)
	if err != nil {
		w.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "chain not configured")
		return nil, err
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callData, err := w.pairABI.Pack("getReserves")
	if err != nil {
		return nil, fmt.Errorf("failed to encode getReserves: %w", err)
	}

	breaker := w.breakers[spec.ID.ChainID]
	addr := spec.ID.Address
	raw, err := breaker.Execute(func() ([]byte, error) {
		return client.Eth.CallContract(ctx, ethereum.CallMsg{
			To:   &addr,
			Data: callData,
		}, nil)
	})
	if err != nil {
		w.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "getReserves failed")
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("getReserves failed for "+spec.ID.String()))
	}

	outputs, err := w.pairABI.Unpack("getReserves", raw)
	if err != nil || len(outputs) < 3 {
		w.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "decode failed")
		return nil, apperror.New(apperror.CodeMalformedSnapshot,
			apperror.WithCause(err),
			apperror.WithContext("undecodable getReserves output for "+spec.ID.String()))
	}

	result := ReservesResult{
		Reserve0: outputs[0].(*big.Int),
		Reserve1: outputs[1].(*big.Int),
	}

	header, err := client.Eth.HeaderByNumber(ctx, nil)
	var blockNumber uint64
	if err == nil {
		blockNumber = header.Number.Uint64()
	}

	state, err := domain.NewPoolState(
		spec.ID,
		spec.Token0, spec.Token1,
		result.Reserve0, result.Reserve1,
		spec.FeeBps,
		blockNumber,
		time.Now(),
	)
	if err != nil {
		w.metrics.readErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "malformed snapshot")
		return nil, err
	}

	w.metrics.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(
		attribute.String("reserve0", result.Reserve0.String()),
		attribute.String("reserve1", result.Reserve1.String()),
		attribute.Int64("block", int64(blockNumber)),
	)
	span.SetStatus(codes.Ok, "pool read")

	return state, nil
}
