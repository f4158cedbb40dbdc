package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agentx-dev/modelgate/internal/cache"
	"github.com/agentx-dev/modelgate/internal/dataset"
	"github.com/agentx-dev/modelgate/internal/execution"
	"github.com/agentx-dev/modelgate/internal/orchestration"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/spinner"
	"github.com/agentx-dev/modelgate/internal/utils"
	"github.com/spf13/cobra"
)

type runOptions struct {
	compareOptions

	datasetPath  string
	systemPrompt string
	engine       string
	workers      int
	timeoutSec   int
	enableCache  bool
	cacheDir     string
	skipEval     bool
	rangeSpec    string
}

// newEngine is swapped in tests.
var newEngine = execution.New

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Query every configured model, then compare the results",
		Long: `Run the evaluation dataset through every model in the config and write one
result file per model into the results directory, then compare them exactly
like the compare command.

The system prompt may be given as text or as the path to a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := projectconfig.Load(opts.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("cache-dir") {
				opts.cacheDir = cfg.Env.CacheDir
			}

			if !opts.skipEval {
				if err := collectResults(cmd.Context(), cmd.ErrOrStderr(), opts, cfg); err != nil {
					return err
				}
			}
			return runComparison(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), &opts.compareOptions, cfg)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.datasetPath, "dataset", projectconfig.DefaultDatasetPath, "Evaluation dataset (JSONL or CSV)")
	cmd.Flags().StringVar(&opts.systemPrompt, "system-prompt", "", "System prompt text, or a path to a file holding it")
	cmd.Flags().StringVar(&opts.engine, "engine", projectconfig.DefaultEngine, "Query engine: copilot-sdk, mock")
	cmd.Flags().IntVar(&opts.workers, "workers", projectconfig.DefaultWorkers, "Number of models queried concurrently")
	cmd.Flags().IntVar(&opts.timeoutSec, "timeout", projectconfig.DefaultTimeoutSec, "Per-query timeout in seconds")
	cmd.Flags().BoolVar(&opts.enableCache, "cache", false, "Reuse cached responses for identical queries")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory (default: $MODELGATE_CACHE_DIR or .modelgate-cache)")
	cmd.Flags().BoolVar(&opts.skipEval, "skip-eval", false, "Skip querying models and only compare existing results")
	cmd.Flags().StringVar(&opts.rangeSpec, "range", "", "Only run dataset items N or N-M (1-based, inclusive)")

	return cmd
}

func collectResults(ctx context.Context, errOut io.Writer, opts *runOptions, cfg *projectconfig.Config) error {
	if len(cfg.Models) == 0 {
		return fmt.Errorf("no models configured in %s", opts.configPath)
	}
	if opts.timeoutSec <= 0 {
		return fmt.Errorf("--timeout must be positive, got %d", opts.timeoutSec)
	}

	items, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if opts.rangeSpec != "" {
		start, end, err := dataset.ParseRange(opts.rangeSpec)
		if err != nil {
			return err
		}
		if items, err = dataset.Range(items, start, end); err != nil {
			return err
		}
	}

	systemPrompt := projectconfig.DefaultSystemPrompt
	if opts.systemPrompt != "" {
		if systemPrompt, err = utils.TextOrFile(opts.systemPrompt); err != nil {
			return fmt.Errorf("failed to read system prompt: %w", err)
		}
	}

	engine, err := newEngine(opts.engine)
	if err != nil {
		return err
	}

	collectorOpts := []orchestration.CollectorOption{
		orchestration.WithSystemPrompt(systemPrompt),
		orchestration.WithWorkers(opts.workers),
		orchestration.WithTimeout(time.Duration(opts.timeoutSec) * time.Second),
	}
	if opts.enableCache {
		c, err := cache.New(opts.cacheDir)
		if err != nil {
			return err
		}
		defer c.Close()
		collectorOpts = append(collectorOpts, orchestration.WithCache(c))
	}

	collector := orchestration.NewCollector(engine, opts.engine, cfg.Models, opts.resultsDir, collectorOpts...)
	if spinner.IsTerminal(errOut) {
		s := spinner.Start(errOut, "Collecting responses...")
		defer s.Stop()
		collector.OnProgress(orchestration.SpinnerProgress(s))
	} else {
		collector.OnProgress(orchestration.PrintProgress(errOut))
	}

	fmt.Fprintf(errOut, "\nRunning evaluation: %d models × %d queries\n", len(cfg.Models), len(items)) //nolint:errcheck
	if _, err := collector.Collect(ctx, items); err != nil {
		return fmt.Errorf("evaluation run failed: %w", err)
	}
	return nil
}
