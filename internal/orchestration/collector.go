// Package orchestration runs an evaluation dataset through every configured
// model and writes one result document per model.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentx-dev/modelgate/internal/cache"
	"github.com/agentx-dev/modelgate/internal/dataset"
	"github.com/agentx-dev/modelgate/internal/execution"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/resultstore"
	"github.com/agentx-dev/modelgate/internal/tokens"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Collector queries every model in the matrix and materializes the outcomes.
type Collector struct {
	engine     execution.Engine
	engineName string
	models     []projectconfig.ModelSpec
	resultsDir string

	systemPrompt string
	workers      int
	timeout      time.Duration
	cache        *cache.Cache
	counter      tokens.Counter
	now          func() time.Time

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSystemPrompt sets the system prompt sent with every query.
func WithSystemPrompt(prompt string) CollectorOption {
	return func(c *Collector) {
		c.systemPrompt = prompt
	}
}

// WithWorkers bounds how many models are queried at once.
func WithWorkers(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTimeout sets the per-query timeout.
func WithTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCache enables response caching
func WithCache(ch *cache.Cache) CollectorOption {
	return func(c *Collector) {
		c.cache = ch
	}
}

// WithTokenCounter sets the counter used when an engine reports no usage.
func WithTokenCounter(counter tokens.Counter) CollectorOption {
	return func(c *Collector) {
		c.counter = counter
	}
}

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

// Summary describes a finished collection run.
type Summary struct {
	RunID string
	Runs  []*models.ModelRunResult
	Paths []string
}

// NewCollector creates a collector that sends queries through engine. engineName
// is part of the cache key so responses from different engines never mix.
func NewCollector(engine execution.Engine, engineName string, specs []projectconfig.ModelSpec, resultsDir string, opts ...CollectorOption) *Collector {
	c := &Collector{
		engine:       engine,
		engineName:   engineName,
		models:       specs,
		resultsDir:   resultsDir,
		systemPrompt: projectconfig.DefaultSystemPrompt,
		workers:      projectconfig.DefaultWorkers,
		timeout:      projectconfig.DefaultTimeoutSec * time.Second,
		counter:      tokens.NewEstimatingCounter(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnProgress registers a progress listener
func (c *Collector) OnProgress(listener ProgressListener) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Collector) notifyProgress(event ProgressEvent) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()

	// held for the whole fan-out so listeners see one event at a time
	for _, listener := range c.listeners {
		listener(event)
	}
}

// Collect runs items through every model. Models run concurrently up to the
// worker limit; queries within a model run in dataset order. Query failures
// are recorded in the outcomes. Only engine setup, cancellation and write
// failures abort the run.
func (c *Collector) Collect(ctx context.Context, items []dataset.Item) (*Summary, error) {
	if len(c.models) == 0 {
		return nil, fmt.Errorf("no models configured")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	runID := uuid.NewString()
	slog.Info("Starting collection", "run_id", runID, "models", len(c.models), "queries", len(items), "engine", c.engineName)

	if err := c.engine.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer func() {
		if err := c.engine.Shutdown(context.Background()); err != nil {
			slog.Warn("Failed to shut down engine", "error", err)
		}
	}()

	summary := &Summary{
		RunID: runID,
		Runs:  make([]*models.ModelRunResult, len(c.models)),
		Paths: make([]string, len(c.models)),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)

	for i, spec := range c.models {
		eg.Go(func() error {
			run, err := c.runModel(ctx, spec, items)
			if err != nil {
				return err
			}

			path := filepath.Join(c.resultsDir, resultstore.FileName(spec.Name))
			if err := resultstore.Write(path, run); err != nil {
				return err
			}
			slog.Debug("Wrote result document", "model", spec.Name, "path", path)

			summary.Runs[i] = run
			summary.Paths[i] = path
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *Collector) runModel(ctx context.Context, spec projectconfig.ModelSpec, items []dataset.Item) (*models.ModelRunResult, error) {
	c.notifyProgress(ProgressEvent{EventType: EventModelStart, Model: spec.Name, Total: len(items)})

	run := &models.ModelRunResult{
		Model:       spec.Name,
		Role:        spec.Role,
		Provider:    spec.Provider,
		Timestamp:   c.now().UTC().Format(time.RFC3339),
		DatasetSize: len(items),
		Results:     make([]models.QueryOutcome, 0, len(items)),
	}

	failed := 0
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collecting %s: %w", spec.Name, err)
		}

		outcome, cached := c.runQuery(ctx, spec, i, item)
		if outcome.Failed() {
			failed++
		}
		run.Results = append(run.Results, outcome)

		c.notifyProgress(ProgressEvent{
			EventType: EventQueryComplete,
			Model:     spec.Name,
			Done:      i + 1,
			Total:     len(items),
			Cached:    cached,
			Failed:    outcome.Failed(),
		})
	}

	c.notifyProgress(ProgressEvent{EventType: EventModelComplete, Model: spec.Name, Done: len(items), Total: len(items), Failures: failed})
	return run, nil
}

func (c *Collector) runQuery(ctx context.Context, spec projectconfig.ModelSpec, index int, item dataset.Item) (models.QueryOutcome, bool) {
	outcome := models.QueryOutcome{
		Index:    index,
		Query:    item.Query,
		Expected: item.Expected,
	}

	key := c.cacheKey(spec, item)
	if key != "" {
		if e, ok := c.cache.Get(key); ok {
			outcome.Response = e.Response
			outcome.TokensUsed = e.TokensUsed
			outcome.LatencyMs = e.LatencyMs
			return outcome, true
		}
	}

	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.engine.Query(qctx, &execution.QueryRequest{
		ModelID:      spec.Deployment,
		SystemPrompt: c.systemPrompt,
		Prompt:       item.Query,
		Timeout:      c.timeout,
	})
	outcome.LatencyMs = math.Round(float64(time.Since(start)) / float64(time.Millisecond))

	switch {
	case err != nil:
		outcome.Error = models.ErrorString(err.Error())
	case !resp.Success:
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "query failed"
		}
		outcome.Error = models.ErrorString(msg)
	default:
		outcome.Response = resp.Output
		outcome.TokensUsed = resp.TokensUsed
		if outcome.TokensUsed == 0 {
			outcome.TokensUsed = tokens.Exchange(c.counter, c.systemPrompt, item.Query, resp.Output)
		}
		if key != "" {
			entry := &cache.Entry{Response: outcome.Response, TokensUsed: outcome.TokensUsed, LatencyMs: outcome.LatencyMs}
			if err := c.cache.Put(key, entry); err != nil {
				slog.Warn("Failed to cache response", "model", spec.Name, "error", err)
			}
		}
	}

	if outcome.Failed() {
		slog.Debug("Query failed", "model", spec.Name, "index", index, "error", *outcome.Error)
	}
	return outcome, false
}

func (c *Collector) cacheKey(spec projectconfig.ModelSpec, item dataset.Item) string {
	if c.cache == nil {
		return ""
	}
	key, err := cache.Key(c.engineName, spec.Deployment, c.systemPrompt, item.Query)
	if err != nil {
		slog.Warn("Failed to compute cache key", "error", err)
		return ""
	}
	return key
}
