package checks

import (
	"testing"

	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingScore(name string) models.AggregatedScore {
	return models.AggregatedScore{
		Name:             name,
		Role:             models.RolePrimary,
		DatasetSize:      10,
		TaskCompletion:   1.0,
		FormatCompliance: 1.0,
		AvgLatencyMs:     250,
		AvgTokens:        120,
		Passed:           true,
		Failures:         []string{},
	}
}

func TestEvaluate_AllPass(t *testing.T) {
	s := passingScore("gpt-4o")

	alerts := Evaluate(&s, projectconfig.DefaultThresholds())

	assert.Empty(t, alerts)
	assert.True(t, s.Passed)
	assert.Empty(t, s.Failures)
}

func TestEvaluate_TaskCompletionBelowThreshold(t *testing.T) {
	th := projectconfig.DefaultThresholds()
	th.TaskCompletion = 0.90

	s := passingScore("gpt-4o")
	s.TaskCompletion = 0.75

	alerts := Evaluate(&s, th)

	require.Len(t, s.Failures, 1)
	assert.False(t, s.Passed)
	assert.Contains(t, s.Failures[0], "task_completion")
	assert.Equal(t, "gpt-4o: task_completion = 0.750 below threshold 0.9", s.Failures[0])
	assert.Equal(t, s.Failures, alerts)
}

func TestEvaluate_MessageOrderIsFixed(t *testing.T) {
	s := passingScore("slow-model")
	s.TaskCompletion = 0.5
	s.FormatCompliance = 0.25
	s.AvgLatencyMs = 7250.04

	alerts := Evaluate(&s, projectconfig.DefaultThresholds())

	assert.Equal(t, []string{
		"slow-model: task_completion = 0.500 below threshold 0.85",
		"slow-model: format_compliance = 0.250 below threshold 0.95",
		"slow-model: avg_latency_ms = 7250.0 exceeds threshold 5000",
	}, alerts)
	assert.Equal(t, alerts, s.Failures)
	assert.False(t, s.Passed)
}

func TestEvaluate_BoundaryValuesPass(t *testing.T) {
	th := projectconfig.DefaultThresholds()
	s := passingScore("edge")
	s.TaskCompletion = th.TaskCompletion
	s.FormatCompliance = th.FormatCompliance
	s.AvgLatencyMs = th.MaxLatencyMs

	alerts := Evaluate(&s, th)

	assert.Empty(t, alerts)
	assert.True(t, s.Passed)
}

func TestEvaluate_PassedMatchesFailures(t *testing.T) {
	th := projectconfig.DefaultThresholds()
	for _, tc := range []float64{0, 0.5, 0.85, 0.9, 1} {
		s := passingScore("m")
		s.TaskCompletion = tc
		Evaluate(&s, th)
		assert.Equal(t, len(s.Failures) == 0, s.Passed, "task_completion=%v", tc)
	}
}

func TestEvaluateAll_CollectsGlobally(t *testing.T) {
	a := passingScore("a")
	a.AvgLatencyMs = 9000
	b := passingScore("b")
	c := passingScore("c")
	c.FormatCompliance = 0.1

	scores := []models.AggregatedScore{a, b, c}
	alerts := EvaluateAll(scores, projectconfig.DefaultThresholds())

	require.Len(t, alerts, 2)
	assert.Contains(t, alerts[0], "a: avg_latency_ms")
	assert.Contains(t, alerts[1], "c: format_compliance")
	assert.False(t, scores[0].Passed)
	assert.True(t, scores[1].Passed)
	assert.False(t, scores[2].Passed)
}

func TestEvaluateAll_NoScores(t *testing.T) {
	alerts := EvaluateAll(nil, projectconfig.DefaultThresholds())
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestRun_DoesNotMutate(t *testing.T) {
	s := passingScore("m")
	s.TaskCompletion = 0

	results := Run(&s, projectconfig.DefaultThresholds())

	require.Len(t, results, 3)
	assert.False(t, results[0].Passed)
	assert.True(t, results[1].Passed)
	assert.True(t, results[2].Passed)
	assert.True(t, s.Passed)
	assert.Empty(t, s.Failures)
}

func TestUnevaluated(t *testing.T) {
	got := Unevaluated(projectconfig.DefaultThresholds())
	assert.Equal(t, []string{
		"coherence >= 3.5",
		"relevance >= 3.5",
		"tool_accuracy >= 0.9",
		"cost per 1k queries <= 15",
	}, got)
}
