// Package app contains application services and port definitions for the market context.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/asset"
)

// PoolSpec describes a pool to monitor, resolved from configuration.
type PoolSpec struct {
	ID     domain.PoolID
	Token0 *asset.Asset
	Token1 *asset.Asset
	FeeBps int64
}

// PoolSource reads the current reserves of a pool from its venue.
type PoolSource interface {
	Fetch(ctx context.Context, spec PoolSpec) (*domain.PoolState, error)
}

// ReserveFeed pushes pool updates from a streaming source. Updates
// arrive on the handler; Start returns once the feed is connected.
type ReserveFeed interface {
	Start(ctx context.Context, handler func(*domain.PoolState)) error
	Close() error
}

// GasOracle reads current gas prices per chain. Values are in wei and
// already clamped to the chain's configured cap.
type GasOracle interface {
	GasPrice(ctx context.Context, chainID uint64) (*big.Int, error)
	MaxGasPrice(chainID uint64) *big.Int
}
