// Package domain contains the market context domain model.
package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
)

// PoolID uniquely identifies a liquidity pool across chains and venues.
type PoolID struct {
	ChainID uint64
	DEXID   string
	Address common.Address
}

// String returns a stable, human-readable key.
func (id PoolID) String() string {
	return fmt.Sprintf("%d/%s/%s", id.ChainID, id.DEXID, id.Address.Hex())
}

// PoolState is an observation of a constant-product pool's reserves at
// a block. It is immutable; a new observation is a new PoolState.
type PoolState struct {
	id          PoolID
	token0      *asset.Asset
	token1      *asset.Asset
	reserve0    asset.Amount
	reserve1    asset.Amount
	feeBps      int64
	blockNumber uint64
	observedAt  time.Time
}

// NewPoolState builds a validated pool observation. Zero or missing
// reserves are rejected; a pool that reports them is either draining
// or the read raced a migration, and either way it must not feed the
// detector.
func NewPoolState(
	id PoolID,
	token0, token1 *asset.Asset,
	reserve0, reserve1 *big.Int,
	feeBps int64,
	blockNumber uint64,
	observedAt time.Time,
) (*PoolState, error) {
	if token0 == nil || token1 == nil {
		return nil, apperror.New(apperror.CodeMalformedSnapshot,
			apperror.WithContext("missing token metadata for "+id.String()))
	}
	if token0.ID().Equals(token1.ID()) {
		return nil, apperror.New(apperror.CodeMalformedSnapshot,
			apperror.WithContext("identical tokens in "+id.String()))
	}
	if reserve0 == nil || reserve1 == nil || reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeMalformedSnapshot,
			apperror.WithContext("non-positive reserves in "+id.String()))
	}
	if feeBps < 0 || feeBps >= 10000 {
		return nil, apperror.New(apperror.CodeMalformedSnapshot,
			apperror.WithContext(fmt.Sprintf("fee %d bps out of range in %s", feeBps, id)))
	}

	return &PoolState{
		id:          id,
		token0:      token0,
		token1:      token1,
		reserve0:    asset.NewAmount(token0, reserve0),
		reserve1:    asset.NewAmount(token1, reserve1),
		feeBps:      feeBps,
		blockNumber: blockNumber,
		observedAt:  observedAt,
	}, nil
}

// ID returns the pool identifier.
func (p *PoolState) ID() PoolID { return p.id }

// Token0 returns the first token of the pair.
func (p *PoolState) Token0() *asset.Asset { return p.token0 }

// Token1 returns the second token of the pair.
func (p *PoolState) Token1() *asset.Asset { return p.token1 }

// Reserve0 returns the reserve of token0.
func (p *PoolState) Reserve0() asset.Amount { return p.reserve0 }

// Reserve1 returns the reserve of token1.
func (p *PoolState) Reserve1() asset.Amount { return p.reserve1 }

// FeeBps returns the swap fee in basis points.
func (p *PoolState) FeeBps() int64 { return p.feeBps }

// BlockNumber returns the block the reserves were read at.
func (p *PoolState) BlockNumber() uint64 { return p.blockNumber }

// ObservedAt returns when the reserves were read.
func (p *PoolState) ObservedAt() time.Time { return p.observedAt }

// Age returns how old the observation is relative to now.
func (p *PoolState) Age(now time.Time) time.Duration {
	return now.Sub(p.observedAt)
}

// IsFresh reports whether the observation is within the freshness bound.
func (p *PoolState) IsFresh(now time.Time, bound time.Duration) bool {
	return p.Age(now) <= bound
}

// Has reports whether the pool trades the given asset.
func (p *PoolState) Has(id asset.AssetID) bool {
	return p.token0.ID().Equals(id) || p.token1.ID().Equals(id)
}

// Other returns the counterpart token for the given side of the pair.
func (p *PoolState) Other(id asset.AssetID) (*asset.Asset, bool) {
	switch {
	case p.token0.ID().Equals(id):
		return p.token1, true
	case p.token1.ID().Equals(id):
		return p.token0, true
	default:
		return nil, false
	}
}

// ReserveOf returns the reserve for the given token of the pair.
func (p *PoolState) ReserveOf(id asset.AssetID) (asset.Amount, bool) {
	switch {
	case p.token0.ID().Equals(id):
		return p.reserve0, true
	case p.token1.ID().Equals(id):
		return p.reserve1, true
	default:
		return asset.Amount{}, false
	}
}

// MidPrice returns the instantaneous token1-per-token0 price implied by
// the reserves, ignoring fee and depth. Display and ranking only; the
// simulator always uses exact swap math.
func (p *PoolState) MidPrice() decimal.Decimal {
	r0 := p.reserve0.ToDecimal()
	if r0.IsZero() {
		return decimal.Zero
	}
	return p.reserve1.ToDecimal().Div(r0)
}

// LiquidityUSD values both reserves through the price index. The bool
// is false when either side has no known USD price; such pools cannot
// be screened against the liquidity floor and are treated as illiquid.
func (p *PoolState) LiquidityUSD(prices *asset.PriceIndex) (decimal.Decimal, bool) {
	v0, ok0 := prices.ValueUSD(p.reserve0)
	v1, ok1 := prices.ValueUSD(p.reserve1)
	if !ok0 || !ok1 {
		return decimal.Zero, false
	}
	return v0.Add(v1), true
}
