// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
)

// Hop is one swap in a route: spend In, receive Out, through Pool.
type Hop struct {
	Pool *marketDomain.PoolState
	In   *asset.Asset
	Out  *asset.Asset
}

// Route is a closed cycle of swaps on a single chain, starting and
// ending in the base asset. Flashloans repay in the borrowed asset, so
// an open path is never executable.
type Route struct {
	hops []Hop
}

// NewRoute validates and builds a route. Checks: at least two hops, at
// most maxHops, every hop connected to the next, all pools on one
// chain, and the path closing back to its start.
func NewRoute(hops []Hop, maxHops int) (*Route, error) {
	if len(hops) < 2 {
		return nil, apperror.New(apperror.CodeBrokenCycle,
			apperror.WithContext("fewer than two hops"))
	}
	if len(hops) > maxHops {
		return nil, apperror.New(apperror.CodeTooManyHops,
			apperror.WithContext(fmt.Sprintf("%d hops exceeds max %d", len(hops), maxHops)))
	}

	chainID := hops[0].Pool.ID().ChainID
	for i, hop := range hops {
		if hop.Pool == nil || hop.In == nil || hop.Out == nil {
			return nil, apperror.New(apperror.CodeBrokenCycle,
				apperror.WithContext(fmt.Sprintf("hop %d incomplete", i)))
		}
		if hop.Pool.ID().ChainID != chainID {
			return nil, apperror.New(apperror.CodeBrokenCycle,
				apperror.WithContext("route crosses chains"))
		}
		if !hop.Pool.Has(hop.In.ID()) || !hop.Pool.Has(hop.Out.ID()) {
			return nil, apperror.New(apperror.CodeBrokenCycle,
				apperror.WithContext(fmt.Sprintf("hop %d tokens not in pool", i)))
		}
		if i > 0 && !hops[i-1].Out.ID().Equals(hop.In.ID()) {
			return nil, apperror.New(apperror.CodeBrokenCycle,
				apperror.WithContext(fmt.Sprintf("hop %d disconnected from hop %d", i, i-1)))
		}
	}

	if !hops[0].In.ID().Equals(hops[len(hops)-1].Out.ID()) {
		return nil, apperror.New(apperror.CodeBrokenCycle,
			apperror.WithContext("route does not return to base asset"))
	}

	cp := make([]Hop, len(hops))
	copy(cp, hops)
	return &Route{hops: cp}, nil
}

// Hops returns the route's hops in execution order.
func (r *Route) Hops() []Hop {
	cp := make([]Hop, len(r.hops))
	copy(cp, r.hops)
	return cp
}

// Len returns the number of hops.
func (r *Route) Len() int { return len(r.hops) }

// Base returns the asset the route borrows and repays.
func (r *Route) Base() *asset.Asset { return r.hops[0].In }

// ChainID returns the chain the route executes on.
func (r *Route) ChainID() uint64 { return r.hops[0].Pool.ID().ChainID }

// MinDepthInBase returns the shallowest input-side reserve along the
// route, expressed in the base asset via the mid prices of the
// preceding hops. Size seeding keys off this: trade size is a small
// fraction of the shallowest pool the trade touches.
func (r *Route) MinDepthInBase() decimal.Decimal {
	rate := decimal.NewFromInt(1) // units of current hop input per 1 base
	min := decimal.Zero
	for i, hop := range r.hops {
		reserve, ok := hop.Pool.ReserveOf(hop.In.ID())
		if !ok {
			continue
		}
		depth := reserve.ToDecimal()
		if rate.IsPositive() {
			depth = depth.Div(rate)
		}
		if i == 0 || depth.LessThan(min) {
			min = depth
		}

		// Advance the rate to the next hop's input asset.
		in, okIn := hop.Pool.ReserveOf(hop.In.ID())
		out, okOut := hop.Pool.ReserveOf(hop.Out.ID())
		if okIn && okOut && !in.ToDecimal().IsZero() {
			rate = rate.Mul(out.ToDecimal().Div(in.ToDecimal()))
		}
	}
	return min
}

// Key is a canonical identity for deduplication: same pools in the
// same order is the same route.
func (r *Route) Key() string {
	parts := make([]string, 0, len(r.hops))
	for _, hop := range r.hops {
		parts = append(parts, hop.Pool.ID().String())
	}
	return strings.Join(parts, ">")
}

// String renders the route as a token path.
func (r *Route) String() string {
	var b strings.Builder
	b.WriteString(r.hops[0].In.Symbol())
	for _, hop := range r.hops {
		b.WriteString(" -> ")
		b.WriteString(hop.Out.Symbol())
	}
	return b.String()
}
