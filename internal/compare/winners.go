package compare

import (
	"math"

	"github.com/agentx-dev/modelgate/internal/models"
)

// Winner metric names as they appear in winner_by_metric.
const (
	MetricTaskCompletion   = "task_completion"
	MetricFormatCompliance = "format_compliance"
	MetricLatency          = "latency"
	MetricTokenEfficiency  = "token_efficiency"
)

// WinnerMetrics is the display order of winner_by_metric.
var WinnerMetrics = []string{
	MetricTaskCompletion,
	MetricFormatCompliance,
	MetricLatency,
	MetricTokenEfficiency,
}

type selector struct {
	metric string
	value  func(*models.AggregatedScore) float64
	// better reports whether a strictly beats b
	better func(a, b float64) bool
}

func higher(a, b float64) bool { return a > b }
func lower(a, b float64) bool  { return a < b }

var selectors = []selector{
	{MetricTaskCompletion, func(s *models.AggregatedScore) float64 { return s.TaskCompletion }, higher},
	{MetricFormatCompliance, func(s *models.AggregatedScore) float64 { return s.FormatCompliance }, higher},
	{MetricLatency, func(s *models.AggregatedScore) float64 { return s.AvgLatencyMs }, lower},
	{MetricTokenEfficiency, tokenCost, lower},
}

// tokenCost treats a missing token average as infinitely expensive so a
// model without token data never wins on efficiency by default.
func tokenCost(s *models.AggregatedScore) float64 {
	if s.AvgTokens == 0 {
		return math.Inf(1)
	}
	return s.AvgTokens
}

// SelectWinners picks the best model per metric. Only passing models are
// candidates unless none passed, in which case every model is. Ties go to
// the earliest model in scores.
func SelectWinners(scores []models.AggregatedScore) map[string]string {
	winners := map[string]string{}
	if len(scores) == 0 {
		return winners
	}

	pool := make([]*models.AggregatedScore, 0, len(scores))
	for i := range scores {
		if scores[i].Passed {
			pool = append(pool, &scores[i])
		}
	}
	if len(pool) == 0 {
		for i := range scores {
			pool = append(pool, &scores[i])
		}
	}

	for _, sel := range selectors {
		best := pool[0]
		bestVal := sel.value(best)
		for _, s := range pool[1:] {
			if v := sel.value(s); sel.better(v, bestVal) {
				best, bestVal = s, v
			}
		}
		winners[sel.metric] = best.Name
	}
	return winners
}
