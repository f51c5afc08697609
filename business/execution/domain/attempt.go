// Package domain contains the execution context domain model.
package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/apperror"
)

// AttemptStatus is the lifecycle state of an execution attempt.
type AttemptStatus string

const (
	StatusPlanned          AttemptStatus = "planned"
	StatusProviderSelected AttemptStatus = "provider_selected"
	StatusSubmitted        AttemptStatus = "submitted"
	StatusConfirmed        AttemptStatus = "confirmed"
	StatusReverted         AttemptStatus = "reverted"
	StatusTimedOut         AttemptStatus = "timed_out"
)

// Terminal reports whether the status is final. Terminal attempts are
// immutable; the flashloan either settled or it did not, and the record
// becomes training data.
func (s AttemptStatus) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusReverted, StatusTimedOut:
		return true
	}
	return false
}

// Settled reports whether the chain gave a definitive answer. A timed
// out attempt is terminal but not settled; the transaction may still
// confirm after the local window.
func (s AttemptStatus) Settled() bool {
	return s == StatusConfirmed || s == StatusReverted
}

// Attempt is one dispatch of a trade plan through a flashloan provider.
// The plan ID is the opportunity the plan was simulated from; retries
// of the same plan are new attempts with an incremented Retry.
type Attempt struct {
	ID      uuid.UUID
	PlanID  uuid.UUID
	ChainID uint64

	// BaseAsset is the symbol the trade is denominated in; realized
	// profit is a balance delta of this asset.
	BaseAsset string

	Retry      int
	ProviderID string
	TxHash     common.Hash
	Status     AttemptStatus

	// RealizedProfit is the observed base-asset balance delta of a
	// confirmed attempt. Nil until confirmation.
	RealizedProfit *decimal.Decimal
	GasUsed        uint64

	// FailureReason is set when the attempt dies before submission,
	// for example when no provider qualifies.
	FailureReason string

	CreatedAt   time.Time
	SubmittedAt time.Time
	ResolvedAt  time.Time
}

// NewAttempt creates an attempt in the Planned state.
func NewAttempt(planID uuid.UUID, chainID uint64, baseAsset string, retry int) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		PlanID:    planID,
		ChainID:   chainID,
		BaseAsset: baseAsset,
		Retry:     retry,
		Status:    StatusPlanned,
		CreatedAt: time.Now(),
	}
}

func (a *Attempt) guard(from AttemptStatus) error {
	if a.Status.Terminal() {
		return apperror.New(apperror.CodePlanAlreadyFinal,
			apperror.WithContext(fmt.Sprintf("attempt %s already terminal as %s", a.ID, a.Status)))
	}
	if a.Status != from {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("attempt %s is %s, expected %s", a.ID, a.Status, from)))
	}
	return nil
}

// SelectProvider moves Planned -> ProviderSelected.
func (a *Attempt) SelectProvider(providerID string) error {
	if err := a.guard(StatusPlanned); err != nil {
		return err
	}
	a.ProviderID = providerID
	a.Status = StatusProviderSelected
	return nil
}

// MarkSubmitted moves ProviderSelected -> Submitted.
func (a *Attempt) MarkSubmitted(txHash common.Hash, at time.Time) error {
	if err := a.guard(StatusProviderSelected); err != nil {
		return err
	}
	a.TxHash = txHash
	a.Status = StatusSubmitted
	a.SubmittedAt = at
	return nil
}

// Confirm moves Submitted -> Confirmed with the realized outcome.
func (a *Attempt) Confirm(realizedProfit decimal.Decimal, gasUsed uint64, at time.Time) error {
	if err := a.guard(StatusSubmitted); err != nil {
		return err
	}
	a.Status = StatusConfirmed
	a.RealizedProfit = &realizedProfit
	a.GasUsed = gasUsed
	a.ResolvedAt = at
	return nil
}

// Revert moves Submitted -> Reverted. The trade had no balance effect
// but the gas is sunk and must be recorded.
func (a *Attempt) Revert(gasUsed uint64, at time.Time) error {
	if err := a.guard(StatusSubmitted); err != nil {
		return err
	}
	a.Status = StatusReverted
	a.GasUsed = gasUsed
	a.ResolvedAt = at
	return nil
}

// TimeOut moves Submitted -> TimedOut after the confirmation window
// expired with no definitive receipt.
func (a *Attempt) TimeOut(at time.Time) error {
	if err := a.guard(StatusSubmitted); err != nil {
		return err
	}
	a.Status = StatusTimedOut
	a.ResolvedAt = at
	return nil
}

// Fail records a pre-submission failure. The attempt stays in its
// current non-terminal state; it never reached the chain.
func (a *Attempt) Fail(reason string) {
	if !a.Status.Terminal() {
		a.FailureReason = reason
	}
}

// Succeeded reports whether the attempt confirmed with positive profit.
func (a *Attempt) Succeeded() bool {
	return a.Status == StatusConfirmed &&
		a.RealizedProfit != nil &&
		a.RealizedProfit.IsPositive()
}
