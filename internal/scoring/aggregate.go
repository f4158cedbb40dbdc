// Package scoring reduces a model's raw query outcomes to the scalar
// metrics that thresholds and winner selection operate on.
package scoring

import (
	"strconv"

	"github.com/agentx-dev/modelgate/internal/models"
)

// MinFormattedLength is the trimmed response length a successful response
// must exceed to count as format compliant.
const MinFormattedLength = 10

// Aggregate computes the metrics for one model run. It never fails: an
// empty run or a run where every query errored yields defined zeros, which
// the threshold checks then catch.
func Aggregate(run *models.ModelRunResult) models.AggregatedScore {
	score := models.AggregatedScore{
		Name:     run.Model,
		Role:     run.Role,
		Passed:   true,
		Failures: []string{},
	}

	n := len(run.Results)
	if n == 0 {
		return score
	}

	var (
		succeeded  int
		formatted  int
		latencySum float64
		tokenSum   int
	)
	for i := range run.Results {
		o := &run.Results[i]
		latencySum += o.LatencyMs
		if o.Failed() {
			continue
		}
		succeeded++
		tokenSum += o.TokensUsed
		if o.TrimmedResponseLen() > MinFormattedLength {
			formatted++
		}
	}

	// successful-only metrics divide by 1 when nothing succeeded
	denom := succeeded
	if denom == 0 {
		denom = 1
	}

	score.DatasetSize = n
	score.TaskCompletion = Round(float64(succeeded)/float64(n), 3)
	score.FormatCompliance = Round(float64(formatted)/float64(denom), 3)
	score.AvgLatencyMs = Round(latencySum/float64(n), 1)
	score.AvgTokens = Round(float64(tokenSum)/float64(denom), 1)
	return score
}

// AggregateAll aggregates every run, preserving order.
func AggregateAll(runs []*models.ModelRunResult) []models.AggregatedScore {
	scores := make([]models.AggregatedScore, 0, len(runs))
	for _, r := range runs {
		scores = append(scores, Aggregate(r))
	}
	return scores
}

// Round rounds the exact binary value of v to the given number of decimal
// digits, with ties to even: 0.8125 rounds to 0.812, 100.25 to 100.2, and
// 100.35 (stored just below the tie) to 100.3.
func Round(v float64, digits int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', digits, 64), 64)
	if err != nil {
		return v
	}
	return r
}
