package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/engine"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single bond",
	Long: `Resolve one bond from an identifier and/or description and print its
yield, accrued interest, risk measures and benchmark spread.

Example:
  go run ./cmd/bondlab analyze --id US912810TJ79 --price 71.66 --settle 2025-04-18
  go run ./cmd/bondlab analyze --desc "AAPL 4.5 05/06/2030" --price 101.25 --depth pricing --json`,
	RunE: runAnalyze,
}

var (
	analyzeID     string
	analyzeDesc   string
	analyzePrice  float64
	analyzeSettle string
	analyzeDepth  string
	analyzeJSON   bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeID, "id", "", "ISIN, CUSIP or other identifier")
	analyzeCmd.Flags().StringVar(&analyzeDesc, "desc", "", "free-text description, e.g. \"T 3 15/08/52\"")
	analyzeCmd.Flags().Float64Var(&analyzePrice, "price", 0, "clean price per 100 face")
	analyzeCmd.Flags().StringVar(&analyzeSettle, "settle", "", "settlement date YYYY-MM-DD (default today)")
	analyzeCmd.Flags().StringVar(&analyzeDepth, "depth", "analytics", "pricing or analytics")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw JSON result")
	_ = analyzeCmd.MarkFlagRequired("price")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	settlement, err := settlementDate(analyzeSettle, time.Now)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.AnalyzeSingleBond(context.Background(), engine.Request{
		Identifier:  analyzeID,
		Description: analyzeDesc,
		CleanPrice:  analyzePrice,
		Settlement:  settlement,
		Depth:       contracts.Depth(analyzeDepth),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		return writeJSON(out, res)
	}
	printResult(out, res)
	if !res.Succeeded() {
		return fmt.Errorf("analysis failed: %s", res.FailureKind)
	}
	return nil
}

// settlementDate parses s or falls back to today's date.
func settlementDate(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		return contracts.Midnight(now()), nil
	}
	return contracts.ParseDate(s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *contracts.AnalyticsResult) {
	name := res.Identifier
	if name == "" {
		name = res.Description
	}
	if !res.Succeeded() {
		fmt.Fprintf(w, "❌ %s: %s (%s)\n", name, res.FailureReason, res.FailureKind)
		return
	}

	fmt.Fprintf(w, "✅ %s\n", name)
	if res.Route != nil {
		fmt.Fprintf(w, "   Route:          %s / %s\n", res.Route.Kind, res.Route.Rule)
		for _, d := range res.Route.Discrepancies {
			fmt.Fprintf(w, "   ⚠️  %s: identifier=%s description=%s\n", d.Field, d.Identifier, d.Description)
		}
	}
	if res.Spec != nil {
		fmt.Fprintf(w, "   Issuer:         %s %.4f%% %s (%s, %s)\n", res.Spec.Issuer, res.Spec.CouponRate*100,
			res.Spec.Maturity.Format(contracts.DateLayout), res.Spec.DayCount, res.Spec.Frequency)
	}
	fmt.Fprintf(w, "   Settlement:     %s\n", res.Settlement.Format(contracts.DateLayout))
	fmt.Fprintf(w, "   Clean / dirty:  %.6f / %.6f\n", res.CleanPrice, res.DirtyPrice)
	fmt.Fprintf(w, "   Accrued:        %.6f\n", res.AccruedInterest)
	fmt.Fprintf(w, "   Yield:          %.6f%%\n", res.YieldToMaturity*100)
	if res.ModifiedDuration != nil {
		fmt.Fprintf(w, "   Mod. duration:  %.4f\n", *res.ModifiedDuration)
	}
	if res.MacaulayDuration != nil {
		fmt.Fprintf(w, "   Mac. duration:  %.4f\n", *res.MacaulayDuration)
	}
	if res.Convexity != nil {
		fmt.Fprintf(w, "   Convexity:      %.4f\n", *res.Convexity)
	}
	if res.Spread != nil && res.Benchmark != nil {
		fmt.Fprintf(w, "   Spread:         %.1f bp over %s (%s)\n", *res.Spread*1e4,
			res.Benchmark.Source, res.Benchmark.ObservationDate.Format(contracts.DateLayout))
	} else if res.Depth == contracts.DepthAnalytics {
		fmt.Fprintln(w, "   Spread:         unavailable")
	}
}
