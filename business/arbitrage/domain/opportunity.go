package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Opportunity is a detected arbitrage cycle whose gross rate clears
// the profit threshold. Detection works on mid prices; only the
// simulator's exact math decides whether it survives depth and fees.
type Opportunity struct {
	ID          uuid.UUID
	Route       *Route
	GrossRate   decimal.Decimal // base out per base in, fees included, depth ignored
	GrossMargin decimal.Decimal // GrossRate - 1
	Risk        *RiskAssessment
	SnapshotAt  time.Time
	DetectedAt  time.Time
}

// NewOpportunity builds an opportunity for a detected route.
func NewOpportunity(route *Route, grossRate decimal.Decimal, risk *RiskAssessment, snapshotAt time.Time) *Opportunity {
	return &Opportunity{
		ID:          uuid.New(),
		Route:       route,
		GrossRate:   grossRate,
		GrossMargin: grossRate.Sub(decimal.NewFromInt(1)),
		Risk:        risk,
		SnapshotAt:  snapshotAt,
		DetectedAt:  time.Now(),
	}
}

// ChainID returns the chain the opportunity executes on.
func (o *Opportunity) ChainID() uint64 {
	return o.Route.ChainID()
}

// Age returns how old the underlying snapshot is.
func (o *Opportunity) Age(now time.Time) time.Duration {
	return now.Sub(o.SnapshotAt)
}
