package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/bondlab/internal/contracts"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio <file>",
	Short: "Analyze a portfolio file",
	Long: `Analyze every holding of a YAML or JSON portfolio file and print the
weighted aggregates. Failed holdings are listed but do not affect the others.

File format:
  settlement: 2025-04-18        # optional, default --settle or today
  holdings:
    - identifier: US912810TJ79
      clean_price: 71.66
      weight: 2
    - description: "AAPL 4.5 05/06/2030"
      clean_price: 101.25       # weight defaults to 1

Example:
  go run ./cmd/bondlab portfolio holdings.yaml
  go run ./cmd/bondlab portfolio holdings.json --save --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPortfolio,
}

var (
	portfolioSettle string
	portfolioSave   bool
	portfolioJSON   bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVar(&portfolioSettle, "settle", "", "default settlement date YYYY-MM-DD")
	portfolioCmd.Flags().BoolVar(&portfolioSave, "save", false, "store the run in PostgreSQL")
	portfolioCmd.Flags().BoolVar(&portfolioJSON, "json", false, "print the raw JSON result")
}

// portfolioFile is the on-disk portfolio. JSON files decode through the
// same YAML decoder.
type portfolioFile struct {
	Settlement string    `yaml:"settlement"`
	Holdings   []holding `yaml:"holdings"`
}

type holding struct {
	Identifier  string   `yaml:"identifier"`
	Description string   `yaml:"description"`
	CleanPrice  *float64 `yaml:"clean_price"`
	Weight      *float64 `yaml:"weight"`
	Settlement  string   `yaml:"settlement"`
}

// parsePortfolio decodes a portfolio file strictly. Settlement falls back
// from the holding to the file to fallback.
func parsePortfolio(data []byte, fallback time.Time) ([]contracts.PortfolioEntry, error) {
	var f portfolioFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode portfolio: %v", contracts.ErrInvalidInput, err)
	}

	def := fallback
	if f.Settlement != "" {
		d, err := contracts.ParseDate(f.Settlement)
		if err != nil {
			return nil, err
		}
		def = d
	}

	entries := make([]contracts.PortfolioEntry, 0, len(f.Holdings))
	for i, h := range f.Holdings {
		if h.CleanPrice == nil {
			return nil, fmt.Errorf("%w: holding %d: clean_price is required", contracts.ErrInvalidInput, i)
		}
		e := contracts.PortfolioEntry{
			Identifier:  h.Identifier,
			Description: h.Description,
			CleanPrice:  *h.CleanPrice,
			Weight:      1,
			Settlement:  def,
		}
		if h.Weight != nil {
			e.Weight = *h.Weight
		}
		if h.Settlement != "" {
			d, err := contracts.ParseDate(h.Settlement)
			if err != nil {
				return nil, fmt.Errorf("holding %d: %w", i, err)
			}
			e.Settlement = d
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read portfolio: %w", err)
	}
	fallback, err := settlementDate(portfolioSettle, time.Now)
	if err != nil {
		return err
	}
	entries, err := parsePortfolio(data, fallback)
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

	ctx := context.Background()
	res, err := a.engine.AnalyzePortfolio(ctx, entries)
	if err != nil {
		return err
	}

	if portfolioSave {
		if a.runs == nil {
			return fmt.Errorf("--save needs DATABASE_URL")
		}
		if err := a.runs.SaveRun(ctx, res); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if portfolioJSON {
		return writeJSON(out, res)
	}
	printPortfolio(out, res, portfolioSave)
	return nil
}

func printPortfolio(w io.Writer, res *contracts.PortfolioResult, saved bool) {
	fmt.Fprintf(w, "=== Portfolio run %s ===\n", res.RunID)
	for i, line := range res.Lines {
		r := line.Result
		name := r.Identifier
		if name == "" {
			name = r.Description
		}
		if r.Succeeded() {
			fmt.Fprintf(w, "%3d ✅ %-20s w=%-8.4g ytm=%.4f%%\n", i, name, line.NormalizedWeight, r.YieldToMaturity*100)
		} else {
			fmt.Fprintf(w, "%3d ❌ %-20s %s: %s\n", i, name, r.FailureKind, r.FailureReason)
		}
	}

	fmt.Fprintf(w, "\nSucceeded %d / %d (weights %s)\n", res.Succeeded, res.Count, res.Normalization)
	printAggregate(w, "Yield (%)", res.WeightedYield, 100)
	printAggregate(w, "Modified duration", res.WeightedModifiedDuration, 1)
	printAggregate(w, "Macaulay duration", res.WeightedMacaulayDuration, 1)
	printAggregate(w, "Convexity", res.WeightedConvexity, 1)
	printAggregate(w, "Accrued", res.WeightedAccrued, 1)
	printAggregate(w, "Spread (bp)", res.WeightedSpread, 1e4)
	fmt.Fprintf(w, "  %-18s %.1f%%\n", "Spread coverage", res.SpreadCoverage*100)
	if saved {
		fmt.Fprintln(w, "\n✅ Run saved")
	}
}

func printAggregate(w io.Writer, label string, v *float64, scale float64) {
	if v == nil {
		fmt.Fprintf(w, "  %-18s n/a\n", label)
		return
	}
	fmt.Fprintf(w, "  %-18s %.4f\n", label, *v*scale)
}
