// Package gas implements the GasOracle port over the chain registry.
package gas

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flasharb/business/market/app"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/cache"
	"github.com/fd1az/flasharb/internal/chainclient"
	"github.com/fd1az/flasharb/internal/circuitbreaker"
	"github.com/fd1az/flasharb/internal/logger"
)

const (
	tracerName = "market.gas"
	meterName  = "market.gas"

	priceCacheTTL = 12 * time.Second // roughly one block
	fetchTimeout  = 10 * time.Second
)

// Ensure Oracle implements the port.
var _ app.GasOracle = (*Oracle)(nil)

type oracleMetrics struct {
	fetchesTotal metric.Int64Counter
	fetchErrors  metric.Int64Counter
	gasPriceGwei metric.Float64Gauge
	cacheHits    metric.Int64Counter
}

// Oracle reads suggested gas prices per chain, with a short cache and
// a per-chain circuit breaker. Prices above the configured cap are
// clamped; the cap itself is enforced again at submission time.
type Oracle struct {
	chains   *chainclient.Registry
	prices   *cache.Cache[uint64, *big.Int]
	breakers map[uint64]*circuitbreaker.CircuitBreaker[*big.Int]
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *oracleMetrics
}

// NewOracle creates an Oracle over the registered chains.
func NewOracle(chains *chainclient.Registry, log logger.LoggerInterface) (*Oracle, error) {
	o := &Oracle{
		chains:   chains,
		prices:   cache.New[uint64, *big.Int](time.Minute),
		breakers: make(map[uint64]*circuitbreaker.CircuitBreaker[*big.Int]),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	for _, chainID := range chains.ChainIDs() {
		cbCfg := circuitbreaker.DefaultConfig(fmt.Sprintf("gas-oracle-%d", chainID))
		o.breakers[chainID] = circuitbreaker.New[*big.Int](cbCfg)
	}

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return o, nil
}

func (o *Oracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.fetchesTotal, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
	)
	if err != nil {
		return err
	}

	o.metrics.fetchErrors, err = meter.Int64Counter(
		"gas_price_fetch_errors_total",
		metric.WithDescription("Failed gas price fetches"),
	)
	if err != nil {
		return err
	}

	o.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Last observed gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	o.metrics.cacheHits, err = meter.Int64Counter(
		"gas_price_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GasPrice returns the suggested gas price for a chain in wei.
func (o *Oracle) GasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	ctx, span := o.tracer.Start(ctx, "gas.price",
		trace.WithAttributes(attribute.Int64("chain_id", int64(chainID))),
	)
	defer span.End()

	if cached, ok := o.prices.Get(ctx, chainID); ok {
		o.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return new(big.Int).Set(cached), nil
	}

	client, err := o.chains.Get(chainID)
	if err != nil {
		return nil, err
	}

	o.metrics.fetchesTotal.Add(ctx, 1)

	wei, err := o.breakers[chainID].Execute(func() (*big.Int, error) {
		callCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		return client.Eth.SuggestGasPrice(callCtx)
	})
	if err != nil {
		o.metrics.fetchErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("eth_gasPrice failed on chain %d", chainID)))
	}

	if limit := client.MaxGasPriceWei(); wei.Cmp(limit) > 0 {
		o.logger.Warn(ctx, "gas price above configured cap, clamping",
			"chain_id", chainID,
			"suggested_wei", wei.String(),
			"cap_wei", limit.String(),
		)
		wei = limit
	}

	o.prices.Set(ctx, chainID, new(big.Int).Set(wei), priceCacheTTL)

	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	o.metrics.gasPriceGwei.Record(ctx, gwei, metric.WithAttributes(attribute.Int64("chain_id", int64(chainID))))
	span.SetAttributes(attribute.Float64("gwei", gwei))
	span.SetStatus(codes.Ok, "fetched")

	return wei, nil
}

// MaxGasPrice returns the configured cap for a chain in wei, or nil
// when the chain is not configured.
func (o *Oracle) MaxGasPrice(chainID uint64) *big.Int {
	client, err := o.chains.Get(chainID)
	if err != nil {
		return nil
	}
	return client.MaxGasPriceWei()
}

// Close releases the cache sweeper.
func (o *Oracle) Close() {
	o.prices.Close()
}
