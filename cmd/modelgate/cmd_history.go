package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentx-dev/modelgate/internal/checks"
	"github.com/agentx-dev/modelgate/internal/history"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/reporting"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	configPath string
	dbPath     string
}

func (o *historyOptions) open(cmd *cobra.Command) (*history.Store, *projectconfig.Config, error) {
	cfg, err := projectconfig.Load(o.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, err
	}
	path := historyPath(o.dbPath, cfg)
	if path == "" {
		return nil, nil, errors.New("no history database: pass --history-db or set MODELGATE_HISTORY_DB")
	}
	store, err := history.Open(cmd.Context(), path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report history: %w", err)
	}
	return store, cfg, nil
}

func newHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived comparison reports",
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", projectconfig.DefaultConfigPath, "Path to the model matrix config")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "history-db", "", "Report history database (default: $MODELGATE_HISTORY_DB)")

	cmd.AddCommand(newHistoryListCommand(opts))
	cmd.AddCommand(newHistoryShowCommand(opts))
	return cmd
}

func newHistoryListCommand(opts *historyOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent archived reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archived reports.") //nolint:errcheck
				return nil
			}
			for _, e := range entries {
				status := "PASS"
				if !e.AllPassed {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%s  %s  models=%d  gates=%s  regression=%s\n", //nolint:errcheck
					e.ReportID, e.Timestamp.Format(time.RFC3339), e.ModelsTested, status, e.Verdict)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of reports to list")

	return cmd
}

func newHistoryShowCommand(opts *historyOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show one archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("unsupported format %q (use %s or %s)", format, formatTable, formatJSON)
			}

			store, cfg, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			return showReport(cmd.Context(), cmd, store, cfg, args[0], format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json")

	return cmd
}

func showReport(ctx context.Context, cmd *cobra.Command, store *history.Store, cfg *projectconfig.Config, reportID, format string) error {
	rec, err := store.Get(ctx, reportID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatJSON {
		data, err := reporting.MarshalReport(rec.Report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data)) //nolint:errcheck
		return nil
	}

	fmt.Fprintf(out, "Report %s (%s), regression: %s\n", rec.ReportID, rec.Timestamp.Format(time.RFC3339), rec.Verdict) //nolint:errcheck
	reporting.PrintSummary(out, rec.Report, reporting.Options{
		Unevaluated: checks.Unevaluated(cfg.Thresholds),
		Regression:  rec.Regression,
	})
	return nil
}
