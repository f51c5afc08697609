package app

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	executionDomain "github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/business/policy/domain"
	"github.com/fd1az/flasharb/internal/apperror"
)

func confirmedAttempt(t *testing.T, profit int64) *executionDomain.Attempt {
	return confirmedAttemptFor(t, "aave", profit)
}

func confirmedAttemptFor(t *testing.T, provider string, profit int64) *executionDomain.Attempt {
	t.Helper()
	a := executionDomain.NewAttempt(uuid.New(), 137, "USDC", 0)
	if err := a.SelectProvider(provider); err != nil {
		t.Fatal(err)
	}
	if err := a.MarkSubmitted(common.HexToHash("0x1"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := a.Confirm(decimal.NewFromInt(profit), 400_000, time.Now()); err != nil {
		t.Fatal(err)
	}
	return a
}

func revertedAttempt(t *testing.T) *executionDomain.Attempt {
	return revertedAttemptFor(t, "aave")
}

func revertedAttemptFor(t *testing.T, provider string) *executionDomain.Attempt {
	t.Helper()
	a := executionDomain.NewAttempt(uuid.New(), 137, "USDC", 0)
	if err := a.SelectProvider(provider); err != nil {
		t.Fatal(err)
	}
	if err := a.MarkSubmitted(common.HexToHash("0x2"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := a.Revert(420_000, time.Now()); err != nil {
		t.Fatal(err)
	}
	return a
}

func timedOutAttempt(t *testing.T) *executionDomain.Attempt {
	t.Helper()
	a := executionDomain.NewAttempt(uuid.New(), 137, "USDC", 0)
	if err := a.SelectProvider("aave"); err != nil {
		t.Fatal(err)
	}
	if err := a.MarkSubmitted(common.HexToHash("0x3"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := a.TimeOut(time.Now()); err != nil {
		t.Fatal(err)
	}
	return a
}

func testBaseline() *domain.Snapshot {
	return domain.Baseline(300, decimal.NewFromFloat(0.005))
}

func TestTrain_NoSettledAttempts(t *testing.T) {
	base := testBaseline()
	history := []*executionDomain.Attempt{
		timedOutAttempt(t),
		executionDomain.NewAttempt(uuid.New(), 137, "USDC", 0),
	}

	_, err := Train(history, base, base, time.Now())
	if code := apperror.GetCode(err); code != apperror.CodeInsufficientData {
		t.Errorf("code = %s, want %s", code, apperror.CodeInsufficientData)
	}
}

func TestTrain_RevertsTightenParameters(t *testing.T) {
	base := testBaseline()
	var history []*executionDomain.Attempt
	for i := 0; i < 6; i++ {
		history = append(history, confirmedAttempt(t, 100))
	}
	for i := 0; i < 4; i++ {
		history = append(history, revertedAttempt(t))
	}

	next, err := Train(history, base, base, time.Now())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !next.SizeMultiplier.LessThan(base.SizeMultiplier) {
		t.Errorf("size multiplier = %s, want tightened below %s", next.SizeMultiplier, base.SizeMultiplier)
	}
	if !next.SlippageToleranceBps.LessThan(base.SlippageToleranceBps) {
		t.Errorf("slippage tolerance = %s, want tightened below %s", next.SlippageToleranceBps, base.SlippageToleranceBps)
	}
	if !next.MinNetMargin.GreaterThan(base.MinNetMargin) {
		t.Errorf("min margin = %s, want raised above %s", next.MinNetMargin, base.MinNetMargin)
	}
	if next.Version != base.Version+1 {
		t.Errorf("version = %d, want %d", next.Version, base.Version+1)
	}
	if next.TrainedOnAttempts != len(history) {
		t.Errorf("trained on = %d, want %d", next.TrainedOnAttempts, len(history))
	}
}

func TestTrain_CleanWindowRelaxesTowardBaseline(t *testing.T) {
	base := testBaseline()
	tightened := base.Successor(base,
		decimal.NewFromFloat(0.5), decimal.NewFromInt(150),
		decimal.NewFromInt(1), decimal.NewFromFloat(0.01),
		nil, 10, time.Now(),
	)

	var history []*executionDomain.Attempt
	for i := 0; i < 10; i++ {
		history = append(history, confirmedAttempt(t, 50))
	}

	next, err := Train(history, tightened, base, time.Now())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !next.SizeMultiplier.GreaterThan(tightened.SizeMultiplier) {
		t.Errorf("size multiplier = %s, want relaxed above %s", next.SizeMultiplier, tightened.SizeMultiplier)
	}
	if !next.SlippageToleranceBps.GreaterThan(tightened.SlippageToleranceBps) {
		t.Errorf("slippage tolerance = %s, want relaxed above %s", next.SlippageToleranceBps, tightened.SlippageToleranceBps)
	}
	if !next.MinNetMargin.LessThan(tightened.MinNetMargin) {
		t.Errorf("min margin = %s, want lowered below %s", next.MinNetMargin, tightened.MinNetMargin)
	}
}

func TestTrain_RelaxingNeverPassesBaseline(t *testing.T) {
	base := testBaseline()
	var history []*executionDomain.Attempt
	for i := 0; i < 10; i++ {
		history = append(history, confirmedAttempt(t, 50))
	}

	// Train repeatedly from the baseline: however clean the history,
	// the knobs must never relax past the configured limits.
	current := base
	for i := 0; i < 5; i++ {
		next, err := Train(history, current, base, time.Now())
		if err != nil {
			t.Fatalf("Train pass %d: %v", i, err)
		}
		current = next
	}
	if current.SizeMultiplier.GreaterThan(base.SizeMultiplier) {
		t.Errorf("size multiplier = %s, must not exceed baseline %s", current.SizeMultiplier, base.SizeMultiplier)
	}
	if current.SlippageToleranceBps.GreaterThan(base.SlippageToleranceBps) {
		t.Errorf("slippage tolerance = %s, must not exceed baseline %s", current.SlippageToleranceBps, base.SlippageToleranceBps)
	}
	if current.MinNetMargin.LessThan(base.MinNetMargin) {
		t.Errorf("min margin = %s, must not drop below baseline %s", current.MinNetMargin, base.MinNetMargin)
	}
}

func TestTrain_TimeoutsBuyGasHeadroom(t *testing.T) {
	base := testBaseline()
	var history []*executionDomain.Attempt
	for i := 0; i < 7; i++ {
		history = append(history, confirmedAttempt(t, 50))
	}
	for i := 0; i < 3; i++ {
		history = append(history, timedOutAttempt(t))
	}

	next, err := Train(history, base, base, time.Now())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !next.GasMultiplier.GreaterThan(base.GasMultiplier) {
		t.Errorf("gas multiplier = %s, want raised above %s", next.GasMultiplier, base.GasMultiplier)
	}
}

func TestTrain_WeightsProvidersByOutcome(t *testing.T) {
	base := testBaseline()
	var history []*executionDomain.Attempt
	for i := 0; i < 4; i++ {
		history = append(history, confirmedAttemptFor(t, "aave", 50))
	}
	for i := 0; i < 2; i++ {
		history = append(history, confirmedAttemptFor(t, "balancer", 50))
	}
	for i := 0; i < 2; i++ {
		history = append(history, revertedAttemptFor(t, "balancer"))
	}

	next, err := Train(history, base, base, time.Now())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got := next.ProviderWeight("aave"); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("aave weight = %s, want 1", got)
	}
	if got := next.ProviderWeight("balancer"); !got.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("balancer weight = %s, want 0.5", got)
	}
	if got := next.ProviderWeight("dodo"); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("unseen provider weight = %s, want neutral 1", got)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	base := testBaseline()
	history := []*executionDomain.Attempt{
		confirmedAttempt(t, 50),
		confirmedAttempt(t, 80),
		revertedAttempt(t),
	}
	now := time.Now()

	first, err := Train(history, base, base, now)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	second, err := Train(history, base, base, now)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !first.SizeMultiplier.Equal(second.SizeMultiplier) ||
		!first.SlippageToleranceBps.Equal(second.SlippageToleranceBps) ||
		!first.GasMultiplier.Equal(second.GasMultiplier) ||
		!first.MinNetMargin.Equal(second.MinNetMargin) {
		t.Errorf("training is not deterministic: %+v vs %+v", first, second)
	}
}
