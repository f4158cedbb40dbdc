package models

import "time"

// AggregatedScore holds the scalar metrics derived from one model's
// outcomes, along with its threshold verdict.
type AggregatedScore struct {
	Name             string   `json:"name"`
	Role             Role     `json:"role"`
	DatasetSize      int      `json:"dataset_size"`
	TaskCompletion   float64  `json:"task_completion"`
	FormatCompliance float64  `json:"format_compliance"`
	AvgLatencyMs     float64  `json:"avg_latency_ms"`
	AvgTokens        float64  `json:"avg_tokens"`
	Passed           bool     `json:"passed"`
	Failures         []string `json:"failures"`
}

// Fail records a failed check. Passed and Failures never diverge because
// this is the only way a failure is recorded.
func (s *AggregatedScore) Fail(msg string) {
	s.Failures = append(s.Failures, msg)
	s.Passed = false
}

// ComparisonReport is the outcome of comparing every model in a run.
type ComparisonReport struct {
	ReportID       string            `json:"report_id"`
	Timestamp      time.Time         `json:"timestamp"`
	ModelsTested   int               `json:"models_tested"`
	Models         []AggregatedScore `json:"models"`
	WinnerByMetric map[string]string `json:"winner_by_metric"`
	Alerts         []string          `json:"alerts"`
	AllPassed      bool              `json:"all_passed"`
}

// Primary returns the first model with the primary role, or nil.
func (r *ComparisonReport) Primary() *AggregatedScore {
	for i := range r.Models {
		if r.Models[i].Role == RolePrimary {
			return &r.Models[i]
		}
	}
	return nil
}

// FailedModels returns the names of models that failed a threshold check.
func (r *ComparisonReport) FailedModels() []string {
	var names []string
	for _, m := range r.Models {
		if !m.Passed {
			names = append(names, m.Name)
		}
	}
	return names
}
