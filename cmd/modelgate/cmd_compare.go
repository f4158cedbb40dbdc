package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/checks"
	"github.com/agentx-dev/modelgate/internal/compare"
	"github.com/agentx-dev/modelgate/internal/history"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/reporting"
	"github.com/agentx-dev/modelgate/internal/resultstore"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// compareOptions holds the flags shared by compare and run.
type compareOptions struct {
	configPath       string
	resultsDir       string
	outputDir        string
	checkGates       bool
	failOnRegression bool
	baselinePath     string
	format           string
	html             bool
	junitPath        string
	strict           bool
	historyDB        string
}

func (o *compareOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", projectconfig.DefaultConfigPath, "Path to the model matrix config")
	cmd.Flags().StringVar(&o.resultsDir, "results-dir", projectconfig.DefaultResultsDir, "Directory of per-model result files")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", projectconfig.DefaultOutputDir, "Directory for comparison reports")
	cmd.Flags().BoolVar(&o.checkGates, "check-gates", false, "Exit 1 when any model misses a threshold")
	cmd.Flags().BoolVar(&o.failOnRegression, "fail-on-regression", false, "Exit 1 when the primary model regressed from the baseline")
	cmd.Flags().StringVar(&o.baselinePath, "baseline", "", "Baseline scores JSON (path or azblob://container/blob)")
	cmd.Flags().StringVar(&o.format, "format", formatTable, "Console output format: table, json")
	cmd.Flags().BoolVar(&o.html, "html", false, "Also write an HTML report")
	cmd.Flags().StringVar(&o.junitPath, "junit", "", "Also write JUnit XML to this path")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Validate result files against the result schema before comparing")
	cmd.Flags().StringVar(&o.historyDB, "history-db", "", "Archive the report in this SQLite database (default: $MODELGATE_HISTORY_DB)")
}

func (o *compareOptions) validate() error {
	switch o.format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use %s or %s)", o.format, formatTable, formatJSON)
	}
}

func newCompareCommand() *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare existing result files and apply gates",
		Long: `Compare the per-model result files in a results directory.

Each model's outcomes are aggregated into task completion, format compliance,
latency and token scores, checked against the configured thresholds and
ranked per metric. Reports are written to the output directory.

With --check-gates the command exits 1 when any model misses a threshold.
With --fail-on-regression it exits 1 when the primary model dropped more than
max_regression_pct from the baseline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := projectconfig.Load(opts.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			return runComparison(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, cfg)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// runComparison loads results, builds and writes the reports, checks the
// baseline and applies the enabled gates.
func runComparison(ctx context.Context, out, errOut io.Writer, opts *compareOptions, cfg *projectconfig.Config) error {
	runs, err := resultstore.Load(ctx, opts.resultsDir, resultstore.WithStrict(opts.strict))
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	fmt.Fprintln(errOut, "Generating comparison report...") //nolint:errcheck
	report := compare.Compare(runs, cfg.Thresholds)

	ropts := reporting.Options{
		Unevaluated: checks.Unevaluated(cfg.Thresholds),
		HTML:        opts.html,
		JUnitPath:   opts.junitPath,
	}
	written, err := reporting.SaveReports(report, opts.outputDir, ropts)
	if err != nil {
		return fmt.Errorf("failed to save reports: %w", err)
	}

	// reports are on disk before the baseline is read, so a bad baseline
	// still leaves the comparison behind
	var regression *baseline.Result
	if opts.failOnRegression || opts.baselinePath != "" {
		regression, err = baseline.Check(ctx, report, opts.baselinePath, cfg.Thresholds.MaxRegressionPct,
			baseline.WithBlobServiceURL(cfg.Env.BlobServiceURL))
		if err != nil {
			return fmt.Errorf("regression check failed: %w", err)
		}
		ropts.Regression = regression
		if written, err = reporting.SaveReports(report, opts.outputDir, ropts); err != nil {
			return fmt.Errorf("failed to save reports: %w", err)
		}
	}
	for _, p := range written {
		fmt.Fprintf(errOut, "Report saved: %s\n", p) //nolint:errcheck
	}

	if err := archiveReport(ctx, opts.historyDB, cfg, report, regression); err != nil {
		return err
	}

	if opts.format == formatJSON {
		data, err := reporting.MarshalReport(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data)) //nolint:errcheck
	} else {
		reporting.PrintSummary(out, report, ropts)
	}

	return gateFailure(opts, report, regression)
}

// gateFailure returns a *TestFailureError naming every enabled gate that failed.
func gateFailure(opts *compareOptions, report *models.ComparisonReport, regression *baseline.Result) error {
	var failures []string
	if opts.checkGates && !report.AllPassed {
		failures = append(failures, "GATE CHECK FAILED: Not all models meet thresholds")
	}
	if opts.failOnRegression && regression != nil && regression.Regressed {
		failures = append(failures, "REGRESSION CHECK FAILED: Primary model regressed from baseline")
	}
	if len(failures) == 0 {
		return nil
	}
	return &TestFailureError{Message: strings.Join(failures, "\n")}
}

func historyPath(flagValue string, cfg *projectconfig.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Env.HistoryDB
}

func archiveReport(ctx context.Context, flagValue string, cfg *projectconfig.Config, report *models.ComparisonReport, regression *baseline.Result) error {
	path := historyPath(flagValue, cfg)
	if path == "" {
		return nil
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open report history: %w", err)
	}
	defer store.Close() //nolint:errcheck

	if err := store.Save(ctx, report, regression); err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}
	slog.Debug("Archived report", "report_id", report.ReportID, "db", path)
	return nil
}
