// Package baseline checks the primary model of a comparison report for
// regressions against a stored baseline snapshot.
package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// ErrNoPrimary is returned by [Promote] when the report has no primary model.
var ErrNoPrimary = errors.New("report has no primary model")

// DefaultLocations are probed in order when no baseline location is given.
var DefaultLocations = []string{
	"evaluation/baseline.json",
	"baseline.json",
	"evaluation/results/baseline.json",
}

// Tracked metric names.
const (
	MetricTaskCompletion   = "task_completion"
	MetricFormatCompliance = "format_compliance"
)

// Scores are the baseline values regressions are measured against.
type Scores struct {
	TaskCompletion   float64 `mapstructure:"task_completion" json:"task_completion"`
	FormatCompliance float64 `mapstructure:"format_compliance" json:"format_compliance"`
}

// Snapshot is a stored baseline. On disk it is either a flat mapping of
// metric values or a mapping with the values nested under "scores".
type Snapshot struct {
	Model      string `mapstructure:"model" json:"model,omitempty"`
	ReportID   string `mapstructure:"report_id" json:"report_id,omitempty"`
	PromotedAt string `mapstructure:"promoted_at" json:"promoted_at,omitempty"`
	Scores     Scores `mapstructure:"-" json:"scores"`
}

// ParseSnapshot decodes a baseline document. Unrecognized keys are ignored.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing baseline: %w", err)
	}

	var snap Snapshot
	if err := mapstructure.Decode(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding baseline: %w", err)
	}

	scores := raw
	if nested, ok := raw["scores"].(map[string]any); ok {
		scores = nested
	}
	if err := mapstructure.Decode(scores, &snap.Scores); err != nil {
		return nil, fmt.Errorf("decoding baseline scores: %w", err)
	}
	return &snap, nil
}

// MetricDelta is the comparison of one tracked metric.
type MetricDelta struct {
	Metric    string  `json:"metric"`
	Baseline  float64 `json:"baseline"`
	Current   float64 `json:"current"`
	DropPct   float64 `json:"drop_pct"`
	Regressed bool    `json:"regressed"`
}

func (d MetricDelta) String() string {
	if d.Regressed {
		return fmt.Sprintf("REGRESSION: %s dropped %.1f%% (baseline: %g -> current: %g)", d.Metric, d.DropPct, d.Baseline, d.Current)
	}
	return fmt.Sprintf("%s: %g (baseline: %g) OK", d.Metric, d.Current, d.Baseline)
}

// Result is the regression verdict. It is independent of the report's own
// threshold verdict.
type Result struct {
	Checked    bool          `json:"checked"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Location   string        `json:"location,omitempty"`
	Model      string        `json:"model,omitempty"`
	MaxDropPct float64       `json:"max_regression_pct"`
	Deltas     []MetricDelta `json:"deltas"`
	Regressed  bool          `json:"regressed"`
}

// OK reports whether no tracked metric regressed. Skipped checks are OK.
func (r *Result) OK() bool {
	return !r.Regressed
}

func skipped(location, reason string, maxPct float64) *Result {
	return &Result{SkipReason: reason, Location: location, MaxDropPct: maxPct, Deltas: []MetricDelta{}}
}

// Check compares the report's primary model against the baseline at
// location, or the first of [DefaultLocations] that exists when location is
// empty. A missing baseline or a report without a primary model skips the
// check. An unreadable or malformed baseline is an error.
func Check(ctx context.Context, report *models.ComparisonReport, location string, maxPct float64, opts ...Option) (*Result, error) {
	o := newOptions(opts)

	resolved, err := o.resolve(location)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		slog.Info("No baseline found, skipping regression check")
		return skipped("", "no baseline found", maxPct), nil
	}

	data, err := o.read(ctx, resolved)
	if errors.Is(err, errBaselineMissing) {
		slog.Warn("Baseline not found, skipping regression check", "location", resolved)
		return skipped(resolved, "baseline not found", maxPct), nil
	}
	if err != nil {
		return nil, err
	}

	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resolved, err)
	}

	primary := report.Primary()
	if primary == nil {
		slog.Info("No primary model in report, skipping regression check")
		return skipped(resolved, "no primary model", maxPct), nil
	}

	res := &Result{
		Checked:    true,
		Location:   resolved,
		Model:      primary.Name,
		MaxDropPct: maxPct,
		Deltas:     []MetricDelta{},
	}
	pairs := []struct {
		metric        string
		base, current float64
	}{
		{MetricTaskCompletion, snap.Scores.TaskCompletion, primary.TaskCompletion},
		{MetricFormatCompliance, snap.Scores.FormatCompliance, primary.FormatCompliance},
	}
	for _, p := range pairs {
		if p.base <= 0 {
			slog.Debug("Baseline metric is zero or absent, skipping", "metric", p.metric)
			continue
		}
		d := MetricDelta{Metric: p.metric, Baseline: p.base, Current: p.current}
		d.DropPct = (p.base - p.current) / p.base * 100
		d.Regressed = d.DropPct > maxPct
		res.Regressed = res.Regressed || d.Regressed
		res.Deltas = append(res.Deltas, d)
	}
	return res, nil
}

// Promote builds a snapshot from the report's primary model.
func Promote(report *models.ComparisonReport, now time.Time) (*Snapshot, error) {
	primary := report.Primary()
	if primary == nil {
		return nil, ErrNoPrimary
	}
	return &Snapshot{
		Model:      primary.Name,
		ReportID:   report.ReportID,
		PromotedAt: now.UTC().Format(time.RFC3339),
		Scores: Scores{
			TaskCompletion:   primary.TaskCompletion,
			FormatCompliance: primary.FormatCompliance,
		},
	}, nil
}

// Save writes snap to a local path or an azblob:// location.
func Save(ctx context.Context, snap *Snapshot, location string, opts ...Option) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling baseline: %w", err)
	}
	return newOptions(opts).write(ctx, location, data)
}
