// Package stream implements the ReserveFeed port over a WebSocket feed.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/market/app"
	"github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/logger"
	"github.com/fd1az/flasharb/internal/wsconn"
)

// Ensure Feed implements ReserveFeed.
var _ app.ReserveFeed = (*Feed)(nil)

// message is the feed's wire envelope. Two message kinds share it:
// reserve updates for monitored pools and USD reference prices.
type message struct {
	Type     string `json:"type"`
	ChainID  uint64 `json:"chain_id,omitempty"`
	Address  string `json:"address,omitempty"`
	Reserve0 string `json:"reserve0,omitempty"`
	Reserve1 string `json:"reserve1,omitempty"`
	Block    uint64 `json:"block,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	PriceUSD string `json:"price_usd,omitempty"`
}

// Feed consumes a push feed of reserve updates and reference prices.
// Reserve updates are forwarded to the snapshot service; prices land
// in the shared price index.
type Feed struct {
	client   *wsconn.Client
	specs    map[string]app.PoolSpec // key: chainID/loweraddr
	prices   *asset.PriceIndex
	registry *asset.Registry
	logger   logger.LoggerInterface
}

// NewFeed creates a Feed over the given WebSocket URL.
func NewFeed(url string, specs []app.PoolSpec, prices *asset.PriceIndex, registry *asset.Registry, log logger.LoggerInterface) (*Feed, error) {
	client, err := wsconn.New(wsconn.DefaultConfig(url, "market-feed"))
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]app.PoolSpec, len(specs))
	for _, spec := range specs {
		byKey[specKey(spec.ID.ChainID, spec.ID.Address.Hex())] = spec
	}

	return &Feed{
		client:   client,
		specs:    byKey,
		prices:   prices,
		registry: registry,
		logger:   log,
	}, nil
}

func specKey(chainID uint64, addr string) string {
	return fmt.Sprintf("%d/%s", chainID, strings.ToLower(addr))
}

// Start connects and begins dispatching updates to handler.
func (f *Feed) Start(ctx context.Context, handler func(*domain.PoolState)) error {
	f.client.OnMessage(func(ctx context.Context, raw []byte) {
		f.handleMessage(ctx, raw, handler)
	})
	f.client.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			f.logger.Warn(context.Background(), "market feed state change",
				"state", string(state), "error", err)
			return
		}
		f.logger.Debug(context.Background(), "market feed state change", "state", string(state))
	})
	return f.client.Connect(ctx)
}

// Close shuts the feed down.
func (f *Feed) Close() error {
	return f.client.Close()
}

func (f *Feed) handleMessage(ctx context.Context, raw []byte, handler func(*domain.PoolState)) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Warn(ctx, "undecodable feed message", "error", err)
		return
	}

	switch msg.Type {
	case "reserves":
		f.handleReserves(ctx, msg, handler)
	case "price":
		f.handlePrice(ctx, msg)
	default:
		// Unknown message kinds are skipped so feed schema additions
		// do not break older bots.
	}
}

func (f *Feed) handleReserves(ctx context.Context, msg message, handler func(*domain.PoolState)) {
	spec, ok := f.specs[specKey(msg.ChainID, msg.Address)]
	if !ok {
		return // not a monitored pool
	}

	r0, ok0 := new(big.Int).SetString(msg.Reserve0, 10)
	r1, ok1 := new(big.Int).SetString(msg.Reserve1, 10)
	if !ok0 || !ok1 {
		f.logger.Warn(ctx, "feed reserves not parseable",
			"pool", spec.ID.String(),
			"reserve0", msg.Reserve0,
			"reserve1", msg.Reserve1,
		)
		return
	}

	state, err := domain.NewPoolState(
		spec.ID,
		spec.Token0, spec.Token1,
		r0, r1,
		spec.FeeBps,
		msg.Block,
		time.Now(),
	)
	if err != nil {
		f.logger.Warn(ctx, "feed reserves rejected", "pool", spec.ID.String(), "error", err)
		return
	}

	handler(state)
}

func (f *Feed) handlePrice(ctx context.Context, msg message) {
	price, err := decimal.NewFromString(msg.PriceUSD)
	if err != nil || price.IsNegative() {
		f.logger.Warn(ctx, "feed price not parseable", "symbol", msg.Symbol, "value", msg.PriceUSD)
		return
	}
	for _, a := range f.registry.GetBySymbol(msg.Symbol) {
		f.prices.Set(a.ID(), price)
	}
}
