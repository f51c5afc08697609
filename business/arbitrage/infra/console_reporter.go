// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flasharb/business/arbitrage/app"
	"github.com/fd1az/flasharb/business/arbitrage/domain"
)

// Ensure ConsoleReporter implements Reporter.
var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out     io.Writer
	verbose bool
}

// NewConsoleReporter creates a new ConsoleReporter. With verbose off,
// raw detections are suppressed and only simulated results print.
func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:     os.Stdout,
		verbose: verbose,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Flasharb Started")
	fmt.Fprintln(r.out, "================")
	return nil
}

// ReportOpportunity outputs a detected cycle.
func (r *ConsoleReporter) ReportOpportunity(opp *domain.Opportunity) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "[%s] detected %s  margin=%s%%  risk=%s\n",
		opp.DetectedAt.Format("15:04:05"),
		opp.Route.String(),
		opp.GrossMargin.Mul(decimal.NewFromInt(100)).StringFixed(3),
		opp.Risk.Score.StringFixed(0),
	)
}

// ReportSimulation outputs a simulated, executable opportunity.
func (r *ConsoleReporter) ReportSimulation(result *domain.SimulationResult) {
	opp := result.Opportunity
	base := opp.Route.Base().Symbol()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "EXECUTABLE OPPORTUNITY")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Chain:          %d\n", opp.ChainID())
	fmt.Fprintf(r.out, "Route:          %s\n", opp.Route.String())
	fmt.Fprintf(r.out, "Timestamp:      %s\n", result.SimulatedAt.Format(time.RFC3339))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRADE")
	fmt.Fprintf(r.out, "  Size:           %s %s\n", result.TradeSize.StringFixed(6), base)
	fmt.Fprintf(r.out, "  Expected out:   %s %s\n", result.ExpectedOut.StringFixed(6), base)
	fmt.Fprintf(r.out, "  Slippage:       %s bps\n", result.SlippageBps.StringFixed(1))
	fmt.Fprintf(r.out, "  Provider:       %s (fee %s %s)\n", result.ProviderID, result.FlashloanFee.StringFixed(6), base)
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Gross:          %s %s\n", result.GrossProfit.StringFixed(6), base)
	fmt.Fprintf(r.out, "  Gas:            %s %s\n", result.GasCostBase.StringFixed(6), base)
	fmt.Fprintf(r.out, "  Net:            %s %s (%s%%)\n",
		result.NetProfit.StringFixed(6), base,
		result.NetMargin.Mul(decimal.NewFromInt(100)).StringFixed(3),
	)
	fmt.Fprintf(r.out, "  Risk score:     %s\n", opp.Risk.Score.StringFixed(0))
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportStats outputs the running pipeline counters.
func (r *ConsoleReporter) ReportStats(summary domain.Summary) {
	fmt.Fprintf(r.out, "[%s] stats detected=%d simulated=%d rejected=%d executed=%d ok=%d failed=%d net=$%s\n",
		time.Now().Format("15:04:05"),
		summary.Detected,
		summary.Simulated,
		summary.Rejected,
		summary.Executed,
		summary.Succeeded,
		summary.Failed,
		summary.TotalNetProfitUSD.StringFixed(2),
	)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Flasharb Stopped")
	return nil
}
