package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Stats accumulates pipeline counters for the lifetime of the process.
type Stats struct {
	mu sync.Mutex

	detected  int64
	simulated int64
	rejected  int64
	executed  int64
	succeeded int64
	failed    int64

	totalNetProfitUSD decimal.Decimal
	totalFeesUSD      decimal.Decimal
	totalGasUSD       decimal.Decimal
}

// NewStats creates a zeroed Stats.
func NewStats() *Stats {
	return &Stats{}
}

// RecordDetected counts detected opportunities.
func (s *Stats) RecordDetected(n int) {
	s.mu.Lock()
	s.detected += int64(n)
	s.mu.Unlock()
}

// RecordSimulated counts a simulation that produced a result.
func (s *Stats) RecordSimulated() {
	s.mu.Lock()
	s.simulated++
	s.mu.Unlock()
}

// RecordRejected counts a simulation that ended in a typed rejection.
func (s *Stats) RecordRejected() {
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()
}

// RecordExecuted counts a plan handed to the execution layer.
func (s *Stats) RecordExecuted() {
	s.mu.Lock()
	s.executed++
	s.mu.Unlock()
}

// RecordOutcome records a confirmed or failed execution with its
// realized USD amounts.
func (s *Stats) RecordOutcome(success bool, netProfitUSD, feesUSD, gasUSD decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.succeeded++
		s.totalNetProfitUSD = s.totalNetProfitUSD.Add(netProfitUSD)
	} else {
		s.failed++
	}
	s.totalFeesUSD = s.totalFeesUSD.Add(feesUSD)
	s.totalGasUSD = s.totalGasUSD.Add(gasUSD)
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Detected          int64
	Simulated         int64
	Rejected          int64
	Executed          int64
	Succeeded         int64
	Failed            int64
	TotalNetProfitUSD decimal.Decimal
	TotalFeesUSD      decimal.Decimal
	TotalGasUSD       decimal.Decimal
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Detected:          s.detected,
		Simulated:         s.simulated,
		Rejected:          s.rejected,
		Executed:          s.executed,
		Succeeded:         s.succeeded,
		Failed:            s.failed,
		TotalNetProfitUSD: s.totalNetProfitUSD,
		TotalFeesUSD:      s.totalFeesUSD,
		TotalGasUSD:       s.totalGasUSD,
	}
}
