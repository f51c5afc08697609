package asset

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceIndex holds USD reference prices used to value pool reserves.
// It is a cache, not a source of truth; stale entries are reported so
// callers can decide whether the valuation is still usable.
type PriceIndex struct {
	mu     sync.RWMutex
	prices map[AssetID]pricePoint
}

type pricePoint struct {
	price decimal.Decimal
	at    time.Time
}

// NewPriceIndex creates an empty price index.
func NewPriceIndex() *PriceIndex {
	return &PriceIndex{prices: make(map[AssetID]pricePoint)}
}

// NewPriceIndexWithStables creates an index seeded with the stablecoin
// pegs for every registered stablecoin in r. Stablecoins are pinned at
// 1 USD; the seed timestamp is now so freshness checks pass at startup.
func NewPriceIndexWithStables(r *Registry) *PriceIndex {
	idx := NewPriceIndex()
	one := decimal.NewFromInt(1)
	now := time.Now()
	for _, a := range r.All() {
		switch a.Symbol() {
		case "USDC", "USDT", "DAI", "BUSD":
			idx.setAt(a.ID(), one, now)
		}
	}
	return idx
}

// Set records the USD price for an asset, observed now.
func (p *PriceIndex) Set(id AssetID, price decimal.Decimal) {
	p.setAt(id, price, time.Now())
}

// SetAt records the USD price for an asset with an explicit observation
// time. Feeds that deliver their own timestamps use this so freshness
// reflects the quote, not the delivery.
func (p *PriceIndex) SetAt(id AssetID, price decimal.Decimal, at time.Time) {
	p.setAt(id, price, at)
}

func (p *PriceIndex) setAt(id AssetID, price decimal.Decimal, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[id] = pricePoint{price: price, at: at}
}

// Get returns the USD price for an asset and when it was recorded.
func (p *PriceIndex) Get(id AssetID) (decimal.Decimal, time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pt, ok := p.prices[id]
	if !ok {
		return decimal.Zero, time.Time{}, false
	}
	return pt.price, pt.at, true
}

// ValueUSD values an Amount in USD using the recorded price. The bool
// is false when no price is known for the amount's asset.
func (p *PriceIndex) ValueUSD(a Amount) (decimal.Decimal, bool) {
	if a.Asset() == nil {
		return decimal.Zero, false
	}
	price, _, ok := p.Get(a.Asset().ID())
	if !ok {
		return decimal.Zero, false
	}
	return a.ToDecimal().Mul(price), true
}

// SpreadSymbols mirrors prices across chains: an asset without a price
// inherits the freshest price of any same-symbol asset that has one.
// Useful when a reference feed quotes WETH once but pools hold bridged
// WETH on several chains.
func (p *PriceIndex) SpreadSymbols(r *Registry) {
	bySymbol := make(map[string]pricePoint)
	p.mu.RLock()
	for _, a := range r.All() {
		if pt, ok := p.prices[a.ID()]; ok {
			if best, seen := bySymbol[a.Symbol()]; !seen || pt.at.After(best.at) {
				bySymbol[a.Symbol()] = pt
			}
		}
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range r.All() {
		if _, ok := p.prices[a.ID()]; ok {
			continue
		}
		if pt, ok := bySymbol[a.Symbol()]; ok {
			p.prices[a.ID()] = pt
		}
	}
}
