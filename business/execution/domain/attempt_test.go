package domain

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/internal/apperror"
)

func TestAttempt_ConfirmedLifecycle(t *testing.T) {
	attempt := NewAttempt(uuid.New(), 137, "USDC", 0)
	if attempt.Status != StatusPlanned {
		t.Fatalf("new attempt status = %s, want %s", attempt.Status, StatusPlanned)
	}

	if err := attempt.SelectProvider("aave"); err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if attempt.Status != StatusProviderSelected || attempt.ProviderID != "aave" {
		t.Errorf("after selection: status=%s provider=%s", attempt.Status, attempt.ProviderID)
	}

	txHash := common.HexToHash("0xabc")
	if err := attempt.MarkSubmitted(txHash, time.Now()); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}
	if attempt.Status != StatusSubmitted || attempt.TxHash != txHash {
		t.Errorf("after submission: status=%s tx=%s", attempt.Status, attempt.TxHash.Hex())
	}

	profit := decimal.NewFromFloat(120.5)
	if err := attempt.Confirm(profit, 380_000, time.Now()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !attempt.Status.Terminal() || !attempt.Status.Settled() {
		t.Errorf("confirmed attempt must be terminal and settled, status=%s", attempt.Status)
	}
	if attempt.RealizedProfit == nil || !attempt.RealizedProfit.Equal(profit) {
		t.Errorf("realized profit = %v, want %s", attempt.RealizedProfit, profit)
	}
	if !attempt.Succeeded() {
		t.Error("confirmed profitable attempt must report success")
	}
}

func TestAttempt_RevertRecordsGas(t *testing.T) {
	attempt := NewAttempt(uuid.New(), 137, "USDC", 0)
	if err := attempt.SelectProvider("balancer"); err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if err := attempt.MarkSubmitted(common.HexToHash("0xdef"), time.Now()); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}

	if err := attempt.Revert(410_000, time.Now()); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if attempt.RealizedProfit != nil {
		t.Error("reverted attempt must have no realized profit")
	}
	if attempt.GasUsed != 410_000 {
		t.Errorf("gas used = %d, the sunk gas must be recorded", attempt.GasUsed)
	}
	if attempt.Succeeded() {
		t.Error("reverted attempt must not report success")
	}
}

func TestAttempt_TerminalStatesAreImmutable(t *testing.T) {
	terminalize := map[string]func(a *Attempt) error{
		"confirmed": func(a *Attempt) error {
			return a.Confirm(decimal.NewFromInt(1), 100, time.Now())
		},
		"reverted":  func(a *Attempt) error { return a.Revert(100, time.Now()) },
		"timed_out": func(a *Attempt) error { return a.TimeOut(time.Now()) },
	}

	for name, finish := range terminalize {
		t.Run(name, func(t *testing.T) {
			attempt := NewAttempt(uuid.New(), 137, "USDC", 0)
			if err := attempt.SelectProvider("aave"); err != nil {
				t.Fatalf("SelectProvider: %v", err)
			}
			if err := attempt.MarkSubmitted(common.HexToHash("0x1"), time.Now()); err != nil {
				t.Fatalf("MarkSubmitted: %v", err)
			}
			if err := finish(attempt); err != nil {
				t.Fatalf("terminalize: %v", err)
			}

			transitions := []func() error{
				func() error { return attempt.SelectProvider("balancer") },
				func() error { return attempt.MarkSubmitted(common.HexToHash("0x2"), time.Now()) },
				func() error { return attempt.Confirm(decimal.NewFromInt(2), 200, time.Now()) },
				func() error { return attempt.Revert(200, time.Now()) },
				func() error { return attempt.TimeOut(time.Now()) },
			}
			for i, transition := range transitions {
				if code := apperror.GetCode(transition()); code != apperror.CodePlanAlreadyFinal {
					t.Errorf("transition %d out of terminal state: code = %s, want %s",
						i, code, apperror.CodePlanAlreadyFinal)
				}
			}
		})
	}
}

func TestAttempt_RejectsIllegalTransitions(t *testing.T) {
	attempt := NewAttempt(uuid.New(), 137, "USDC", 0)

	// Cannot submit or resolve before a provider is selected.
	if code := apperror.GetCode(attempt.MarkSubmitted(common.HexToHash("0x1"), time.Now())); code != apperror.CodeInvalidState {
		t.Errorf("submit from planned: code = %s, want %s", code, apperror.CodeInvalidState)
	}
	if code := apperror.GetCode(attempt.Confirm(decimal.NewFromInt(1), 100, time.Now())); code != apperror.CodeInvalidState {
		t.Errorf("confirm from planned: code = %s, want %s", code, apperror.CodeInvalidState)
	}
	if code := apperror.GetCode(attempt.TimeOut(time.Now())); code != apperror.CodeInvalidState {
		t.Errorf("timeout from planned: code = %s, want %s", code, apperror.CodeInvalidState)
	}
}

func TestAttempt_FailKeepsNonTerminalState(t *testing.T) {
	attempt := NewAttempt(uuid.New(), 137, "USDC", 0)
	attempt.Fail("no qualifying provider")

	if attempt.Status != StatusPlanned {
		t.Errorf("status = %s, a pre-submission failure must not fabricate a terminal state", attempt.Status)
	}
	if attempt.FailureReason == "" {
		t.Error("failure reason must be recorded")
	}
}
