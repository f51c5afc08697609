// Package catalog maintains the flashloan provider catalog.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/httpclient"
	"github.com/fd1az/flasharb/internal/logger"
)

const refreshTimeout = 10 * time.Second

var _ app.ProviderCatalog = (*Catalog)(nil)

// Catalog serves flashloan provider records. It starts from the static
// configuration and, when a catalog URL is configured, refreshes
// availability and liquidity from it periodically. Reads always see
// the last complete refresh.
type Catalog struct {
	logger logger.LoggerInterface
	url    string
	client httpclient.Client

	mu        sync.RWMutex
	providers []domain.Provider

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a catalog from the configured provider entries.
func New(entries []config.ProviderConfig, url string, log logger.LoggerInterface) *Catalog {
	providers := make([]domain.Provider, 0, len(entries))
	for _, e := range entries {
		providers = append(providers, domain.Provider{
			ID:              e.ID,
			Name:            e.Name,
			FeeBps:          e.FeeBps,
			Chains:          e.Chains,
			MaxLiquidityUSD: decimal.NewFromFloat(e.MaxLiquidityUSD),
			Available:       e.Enabled,
		})
	}

	catalog := &Catalog{
		logger:    log,
		url:       url,
		providers: providers,
	}
	if url != "" {
		client, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("flashloan-catalog"),
			httpclient.WithRequestTimeout(refreshTimeout),
			httpclient.WithTraceOptions(otel.Tracer("execution")),
			httpclient.WithHeaders(map[string]string{
				"Accept": "application/json",
			}),
		)
		if err != nil {
			log.Warn(context.Background(), "catalog http client unavailable, refresh disabled",
				"error", err,
			)
		} else {
			catalog.client = client
		}
	}
	return catalog
}

// StartRefresh launches the periodic refresh loop. A refresh failure
// keeps the previous catalog; the orchestrator never sees a partial
// update.
func (c *Catalog) StartRefresh(ctx context.Context, interval time.Duration) {
	if c.client == nil || interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.refresh(ctx); err != nil {
					c.logger.Warn(ctx, "provider catalog refresh failed",
						"url", c.url,
						"error", err,
					)
				}
			}
		}
	}()
}

// Close stops the refresh loop.
func (c *Catalog) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

type catalogEntry struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	FeeBps          int64    `json:"fee_bps"`
	Chains          []uint64 `json:"chains"`
	MaxLiquidityUSD float64  `json:"max_liquidity_usd"`
	Available       bool     `json:"available"`
}

func (c *Catalog) refresh(ctx context.Context) error {
	var entries []catalogEntry
	resp, err := c.client.NewRequest().
		SetResult(&entries).
		Get(ctx, c.url)
	if err != nil {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("catalog fetch failed for %s", c.url)),
		)
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext(fmt.Sprintf("catalog returned %d for %s", resp.StatusCode, c.url)),
		)
	}

	providers := make([]domain.Provider, 0, len(entries))
	for _, e := range entries {
		providers = append(providers, domain.Provider{
			ID:              e.ID,
			Name:            e.Name,
			FeeBps:          e.FeeBps,
			Chains:          e.Chains,
			MaxLiquidityUSD: decimal.NewFromFloat(e.MaxLiquidityUSD),
			Available:       e.Available,
		})
	}

	c.mu.Lock()
	c.providers = providers
	c.mu.Unlock()

	c.logger.Debug(ctx, "provider catalog refreshed", "providers", len(providers))
	return nil
}

// Providers returns every provider serving the chain.
func (c *Catalog) Providers(chainID uint64) []domain.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Provider
	for _, p := range c.providers {
		if p.SupportsChain(chainID) {
			out = append(out, p)
		}
	}
	return out
}

// Cheapest returns the lowest-fee available provider on the chain.
// The simulator prices flashloan costs against this before a trade
// plan exists, when the notional is still unknown.
func (c *Catalog) Cheapest(chainID uint64) (domain.Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var candidates []domain.Provider
	for _, p := range c.providers {
		if p.Available && p.SupportsChain(chainID) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return domain.Provider{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FeeBps != candidates[j].FeeBps {
			return candidates[i].FeeBps < candidates[j].FeeBps
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0], true
}
