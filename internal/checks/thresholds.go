// Package checks applies the configured pass/fail thresholds to
// aggregated model scores.
package checks

import (
	"fmt"
	"strconv"

	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
)

// Direction says which side of a threshold is passing.
type Direction string

const (
	// Min requires value >= threshold.
	Min Direction = "min"
	// Max requires value <= threshold.
	Max Direction = "max"
)

// ThresholdCheck compares one metric of a score against one threshold.
type ThresholdCheck struct {
	Metric    string
	Direction Direction
	Value     func(*models.AggregatedScore) float64
	Threshold func(projectconfig.Thresholds) float64
}

// ScoreChecks are the checks applied to every model, in reporting order.
var ScoreChecks = []ThresholdCheck{
	{
		Metric:    "task_completion",
		Direction: Min,
		Value:     func(s *models.AggregatedScore) float64 { return s.TaskCompletion },
		Threshold: func(t projectconfig.Thresholds) float64 { return t.TaskCompletion },
	},
	{
		Metric:    "format_compliance",
		Direction: Min,
		Value:     func(s *models.AggregatedScore) float64 { return s.FormatCompliance },
		Threshold: func(t projectconfig.Thresholds) float64 { return t.FormatCompliance },
	},
	{
		Metric:    "avg_latency_ms",
		Direction: Max,
		Value:     func(s *models.AggregatedScore) float64 { return s.AvgLatencyMs },
		Threshold: func(t projectconfig.Thresholds) float64 { return t.MaxLatencyMs },
	},
}

// CheckResult holds the outcome of a single threshold check.
type CheckResult struct {
	// Name is the metric the check applies to.
	Name      string
	Passed    bool
	Value     float64
	Threshold float64
	// Summary is the alert text; empty when the check passed.
	Summary string
}

// Check runs c against score without modifying it.
func (c ThresholdCheck) Check(score *models.AggregatedScore, th projectconfig.Thresholds) CheckResult {
	value := c.Value(score)
	threshold := c.Threshold(th)
	res := CheckResult{Name: c.Metric, Value: value, Threshold: threshold, Passed: true}

	switch c.Direction {
	case Min:
		if value < threshold {
			res.Passed = false
			res.Summary = fmt.Sprintf("%s: %s = %.3f below threshold %s", score.Name, c.Metric, value, formatThreshold(threshold))
		}
	case Max:
		if value > threshold {
			res.Passed = false
			res.Summary = fmt.Sprintf("%s: %s = %.1f exceeds threshold %s", score.Name, c.Metric, value, formatThreshold(threshold))
		}
	}
	return res
}

// Run applies every check in [ScoreChecks] order.
func Run(score *models.AggregatedScore, th projectconfig.Thresholds) []CheckResult {
	results := make([]CheckResult, 0, len(ScoreChecks))
	for _, c := range ScoreChecks {
		results = append(results, c.Check(score, th))
	}
	return results
}

// Evaluate applies the checks to score, recording each failure on it, and
// returns the failure messages so callers can collect global alerts.
func Evaluate(score *models.AggregatedScore, th projectconfig.Thresholds) []string {
	var alerts []string
	for _, res := range Run(score, th) {
		if res.Passed {
			continue
		}
		score.Fail(res.Summary)
		alerts = append(alerts, res.Summary)
	}
	return alerts
}

// EvaluateAll evaluates every score in order and returns all alerts.
func EvaluateAll(scores []models.AggregatedScore, th projectconfig.Thresholds) []string {
	alerts := []string{}
	for i := range scores {
		alerts = append(alerts, Evaluate(&scores[i], th)...)
	}
	return alerts
}

// Unevaluated lists configured thresholds that need an external judge
// (or cost data) and are therefore not checked. They are reported as not
// evaluated, never as passed.
func Unevaluated(th projectconfig.Thresholds) []string {
	return []string{
		"coherence >= " + formatThreshold(th.Coherence),
		"relevance >= " + formatThreshold(th.Relevance),
		"tool_accuracy >= " + formatThreshold(th.ToolAccuracy),
		"cost per 1k queries <= " + formatThreshold(th.MaxCostPer1K),
	}
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
