package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/asset"
)

// Snapshot is an immutable view of the monitored pools at a point in
// time. Consumers filter it rather than mutating it; the scan loop
// hands every detector pass its own snapshot so mid-scan updates never
// tear a cycle's inputs.
type Snapshot struct {
	pools   []*PoolState
	takenAt time.Time
}

// NewSnapshot builds a snapshot from the given pool states.
func NewSnapshot(pools []*PoolState, takenAt time.Time) *Snapshot {
	cp := make([]*PoolState, len(pools))
	copy(cp, pools)
	return &Snapshot{pools: cp, takenAt: takenAt}
}

// Pools returns the pool states in the snapshot.
func (s *Snapshot) Pools() []*PoolState {
	cp := make([]*PoolState, len(s.pools))
	copy(cp, s.pools)
	return cp
}

// TakenAt returns when the snapshot was assembled.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Len returns the number of pools.
func (s *Snapshot) Len() int { return len(s.pools) }

// Fresh returns a snapshot containing only pools observed within the
// freshness bound.
func (s *Snapshot) Fresh(now time.Time, bound time.Duration) *Snapshot {
	out := make([]*PoolState, 0, len(s.pools))
	for _, p := range s.pools {
		if p.IsFresh(now, bound) {
			out = append(out, p)
		}
	}
	return &Snapshot{pools: out, takenAt: s.takenAt}
}

// Liquid returns a snapshot containing only pools whose combined
// reserves meet the USD floor. Pools with unknown prices are dropped.
func (s *Snapshot) Liquid(prices *asset.PriceIndex, floorUSD decimal.Decimal) *Snapshot {
	out := make([]*PoolState, 0, len(s.pools))
	for _, p := range s.pools {
		usd, ok := p.LiquidityUSD(prices)
		if ok && usd.GreaterThanOrEqual(floorUSD) {
			out = append(out, p)
		}
	}
	return &Snapshot{pools: out, takenAt: s.takenAt}
}

// OnChain returns a snapshot restricted to one chain. Flashloans
// cannot span chains, so detection always works per chain.
func (s *Snapshot) OnChain(chainID uint64) *Snapshot {
	out := make([]*PoolState, 0, len(s.pools))
	for _, p := range s.pools {
		if p.ID().ChainID == chainID {
			out = append(out, p)
		}
	}
	return &Snapshot{pools: out, takenAt: s.takenAt}
}

// ChainIDs returns the distinct chains present in the snapshot.
func (s *Snapshot) ChainIDs() []uint64 {
	seen := make(map[uint64]struct{})
	out := make([]uint64, 0, 4)
	for _, p := range s.pools {
		id := p.ID().ChainID
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
