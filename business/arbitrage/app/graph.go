package app

import (
	"sort"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/flasharb/business/market/domain"
	"github.com/fd1az/flasharb/internal/asset"
)

// edge is one tradable direction through a pool: spend From, receive
// To, at the fee-adjusted mid rate.
type edge struct {
	pool *marketDomain.PoolState
	from *asset.Asset
	to   *asset.Asset
	rate decimal.Decimal // units of To per unit of From, fee included
}

// tokenGraph is the adjacency view of one chain's snapshot. Adjacency
// lists are sorted so detection output is deterministic for a given
// snapshot regardless of map iteration order.
type tokenGraph struct {
	edges map[asset.AssetID][]edge
}

// buildGraph constructs the graph from a (already filtered) snapshot.
// Every pool contributes two directed edges.
func buildGraph(snapshot *marketDomain.Snapshot) *tokenGraph {
	g := &tokenGraph{edges: make(map[asset.AssetID][]edge)}

	for _, pool := range snapshot.Pools() {
		r0 := pool.Reserve0().ToDecimal()
		r1 := pool.Reserve1().ToDecimal()
		if r0.IsZero() || r1.IsZero() {
			continue
		}
		feeKeep := decimal.NewFromInt(bpsDenominator - pool.FeeBps()).
			Div(decimal.NewFromInt(bpsDenominator))

		g.add(edge{
			pool: pool,
			from: pool.Token0(),
			to:   pool.Token1(),
			rate: r1.Div(r0).Mul(feeKeep),
		})
		g.add(edge{
			pool: pool,
			from: pool.Token1(),
			to:   pool.Token0(),
			rate: r0.Div(r1).Mul(feeKeep),
		})
	}

	for id := range g.edges {
		list := g.edges[id]
		sort.Slice(list, func(i, j int) bool {
			if !list[i].to.ID().Equals(list[j].to.ID()) {
				return list[i].to.ID().String() < list[j].to.ID().String()
			}
			return list[i].pool.ID().String() < list[j].pool.ID().String()
		})
		g.edges[id] = list
	}

	return g
}

func (g *tokenGraph) add(e edge) {
	g.edges[e.from.ID()] = append(g.edges[e.from.ID()], e)
}

// out returns the sorted outgoing edges of a token.
func (g *tokenGraph) out(id asset.AssetID) []edge {
	return g.edges[id]
}
