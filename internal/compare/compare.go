// Package compare assembles a comparison report from per-model run results:
// aggregation, threshold evaluation and winner selection.
package compare

import (
	"fmt"
	"time"

	"github.com/agentx-dev/modelgate/internal/checks"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/scoring"
	"github.com/google/uuid"
)

type options struct {
	now   func() time.Time
	newID func(time.Time) string
}

// Option customizes [Compare].
type Option func(*options)

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides report id generation.
func WithIDGenerator(newID func(time.Time) string) Option {
	return func(o *options) { o.newID = newID }
}

// NewReportID returns compare-YYYYMMDD-HHMMSS-xxxxxxxx for ts.
func NewReportID(ts time.Time) string {
	return fmt.Sprintf("compare-%s-%s", ts.UTC().Format("20060102-150405"), uuid.New().String()[:8])
}

// Compare builds the report for runs, which must already be in canonical
// order; that order decides winner ties.
func Compare(runs []*models.ModelRunResult, th projectconfig.Thresholds, opts ...Option) *models.ComparisonReport {
	o := options{now: time.Now, newID: NewReportID}
	for _, opt := range opts {
		opt(&o)
	}

	scores := scoring.AggregateAll(runs)
	alerts := checks.EvaluateAll(scores, th)

	allPassed := true
	for _, s := range scores {
		allPassed = allPassed && s.Passed
	}

	ts := o.now().UTC()
	return &models.ComparisonReport{
		ReportID:       o.newID(ts),
		Timestamp:      ts,
		ModelsTested:   len(scores),
		Models:         scores,
		WinnerByMetric: SelectWinners(scores),
		Alerts:         alerts,
		AllPassed:      allPassed,
	}
}
