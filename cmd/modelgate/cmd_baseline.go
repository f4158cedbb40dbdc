package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/reporting"
	"github.com/spf13/cobra"
)

func newBaselineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the regression baseline",
	}
	cmd.AddCommand(newBaselinePromoteCommand())
	return cmd
}

func newBaselinePromoteCommand() *cobra.Command {
	var (
		configPath string
		reportPath string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Store a report's primary model scores as the new baseline",
		Long: `Promote the primary model's scores from a comparison report to the baseline
used by --fail-on-regression. The destination may be a local path or an
azblob://<container>/<blob> location (requires MODELGATE_BLOB_SERVICE_URL).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}

			report, err := reporting.ReadJSON(reportPath)
			if err != nil {
				return err
			}

			snap, err := baseline.Promote(report, time.Now())
			if err != nil {
				return fmt.Errorf("cannot promote %s: %w", reportPath, err)
			}

			if err := baseline.Save(cmd.Context(), snap, outPath, baseline.WithBlobServiceURL(cfg.Env.BlobServiceURL)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Promoted %s from %s to %s (task_completion %g, format_compliance %g)\n", //nolint:errcheck
				snap.Model, snap.ReportID, outPath, snap.Scores.TaskCompletion, snap.Scores.FormatCompliance)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", projectconfig.DefaultConfigPath, "Path to the model matrix config")
	cmd.Flags().StringVar(&reportPath, "report", filepath.Join(projectconfig.DefaultOutputDir, reporting.JSONReportName), "Comparison report JSON to promote")
	cmd.Flags().StringVar(&outPath, "out", baseline.DefaultLocations[0], "Baseline destination (path or azblob://container/blob)")

	return cmd
}
