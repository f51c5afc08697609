// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/flasharb/business/arbitrage/domain"
	"github.com/fd1az/flasharb/business/execution/domain"
)

// ProviderCatalog is the read-only flashloan provider view. Refreshes
// happen behind it; callers always see a consistent catalog.
type ProviderCatalog interface {
	// Providers returns every known provider for a chain.
	Providers(chainID uint64) []domain.Provider
	// Cheapest returns the lowest-fee available provider for a chain.
	Cheapest(chainID uint64) (domain.Provider, bool)
}

// SubmissionHandle identifies an in-flight transaction.
type SubmissionHandle struct {
	TxHash  common.Hash
	ChainID uint64
}

// Outcome is the observed result of a submitted transaction.
type Outcome struct {
	Reverted     bool
	GasUsed      uint64
	RealizedBase decimal.Decimal // base-asset balance delta, zero on revert
	ResolvedAt   time.Time
}

// Submitter sends the atomic flashloan transaction and observes its
// finality. The borrow, swaps, repayment and profit capture are one
// transaction; there is no partially-executed state to manage here.
type Submitter interface {
	// Submit signs and broadcasts the plan. It fails without cost when
	// the gas price exceeds the chain's cap or no executor contract is
	// configured.
	Submit(ctx context.Context, plan *arbDomain.SimulationResult, provider domain.Provider) (SubmissionHandle, error)
	// Await blocks until the transaction reaches finality or ctx ends.
	Await(ctx context.Context, handle SubmissionHandle, plan *arbDomain.SimulationResult) (Outcome, error)
	// Check re-queries chain state once, without waiting. Used after a
	// local timeout; the transaction may have confirmed anyway.
	Check(ctx context.Context, handle SubmissionHandle, plan *arbDomain.SimulationResult) (Outcome, bool, error)
}

// AttemptStore persists execution attempts. The history is append-only
// from the policy layer's point of view; Save upserts by attempt ID as
// the state machine advances.
type AttemptStore interface {
	Save(ctx context.Context, attempt *domain.Attempt) error
	ByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Attempt, error)
	Recent(ctx context.Context, limit int) ([]*domain.Attempt, error)
}

// EventPublisher emits settlement and attempt events to downstream
// collaborators.
type EventPublisher interface {
	PublishAttempt(ctx context.Context, attempt *domain.Attempt) error
	Close() error
}
