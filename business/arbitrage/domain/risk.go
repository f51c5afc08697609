package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/asset"
)

// RiskAssessment scores an opportunity from 0 (benign) to 100. The
// score gates execution; a high-margin route through thin pools on a
// stale snapshot is how flashloan bots lose their gas budget.
type RiskAssessment struct {
	Score   decimal.Decimal
	Factors []RiskFactor
}

// RiskFactor is one contribution to the risk score.
type RiskFactor struct {
	Name   string
	Points decimal.Decimal
	Detail string
}

// AssessRisk scores a route against the snapshot it was detected on.
// Contributions: hop count (longer routes compound slippage and revert
// surface), pool depth relative to the liquidity floor, observation
// age relative to the freshness bound, and margin thinness.
func AssessRisk(route *Route, grossMargin decimal.Decimal, prices *asset.PriceIndex, liquidityFloorUSD decimal.Decimal, freshnessBound time.Duration, now time.Time) *RiskAssessment {
	var factors []RiskFactor
	score := decimal.Zero

	// Hop count: 2 hops is the floor, each extra hop adds 12 points.
	extraHops := route.Len() - 2
	if extraHops > 0 {
		pts := decimal.NewFromInt(int64(extraHops * 12))
		factors = append(factors, RiskFactor{
			Name:   "route_length",
			Points: pts,
			Detail: route.String(),
		})
		score = score.Add(pts)
	}

	// Depth: pools near the liquidity floor add up to 30 points.
	worstDepth := decimal.Zero
	haveDepth := false
	for _, hop := range route.Hops() {
		usd, ok := hop.Pool.LiquidityUSD(prices)
		if !ok {
			continue
		}
		if !haveDepth || usd.LessThan(worstDepth) {
			worstDepth = usd
			haveDepth = true
		}
	}
	if !haveDepth {
		pts := decimal.NewFromInt(30)
		factors = append(factors, RiskFactor{Name: "unknown_depth", Points: pts})
		score = score.Add(pts)
	} else if liquidityFloorUSD.IsPositive() {
		// ratio 1.0 at the floor -> 30 points, 3x the floor -> 10, 10x -> 3.
		ratio := worstDepth.Div(liquidityFloorUSD)
		if ratio.LessThan(decimal.NewFromInt(10)) {
			pts := decimal.NewFromInt(30).Div(ratio)
			if pts.GreaterThan(decimal.NewFromInt(30)) {
				pts = decimal.NewFromInt(30)
			}
			factors = append(factors, RiskFactor{
				Name:   "shallow_pool",
				Points: pts.Round(1),
				Detail: "$" + worstDepth.StringFixed(0),
			})
			score = score.Add(pts)
		}
	}

	// Staleness: age as a fraction of the freshness bound, up to 25.
	if freshnessBound > 0 {
		worstAge := time.Duration(0)
		for _, hop := range route.Hops() {
			if age := hop.Pool.Age(now); age > worstAge {
				worstAge = age
			}
		}
		frac := decimal.NewFromFloat(worstAge.Seconds() / freshnessBound.Seconds())
		if frac.GreaterThan(decimal.NewFromFloat(0.25)) {
			pts := frac.Mul(decimal.NewFromInt(25))
			if pts.GreaterThan(decimal.NewFromInt(25)) {
				pts = decimal.NewFromInt(25)
			}
			factors = append(factors, RiskFactor{
				Name:   "stale_reserves",
				Points: pts.Round(1),
				Detail: worstAge.Round(time.Millisecond).String(),
			})
			score = score.Add(pts)
		}
	}

	// Thin margin: below 1% adds up to 15 points.
	onePct := decimal.NewFromFloat(0.01)
	if grossMargin.LessThan(onePct) && grossMargin.IsPositive() {
		pts := decimal.NewFromInt(15).Mul(onePct.Sub(grossMargin).Div(onePct))
		factors = append(factors, RiskFactor{
			Name:   "thin_margin",
			Points: pts.Round(1),
			Detail: grossMargin.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%",
		})
		score = score.Add(pts)
	}

	if score.GreaterThan(decimal.NewFromInt(100)) {
		score = decimal.NewFromInt(100)
	}

	return &RiskAssessment{Score: score.Round(1), Factors: factors}
}

// Acceptable reports whether the score clears the configured gate.
func (r *RiskAssessment) Acceptable(maxScore decimal.Decimal) bool {
	return r.Score.LessThanOrEqual(maxScore)
}
