package reporting

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReport() *models.ComparisonReport {
	return &models.ComparisonReport{
		ReportID:     "compare-20260615-120000-1a2b3c4d",
		Timestamp:    time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
		ModelsTested: 2,
		Models: []models.AggregatedScore{
			{
				Name: "gpt-4o", Role: models.RolePrimary, DatasetSize: 20,
				TaskCompletion: 0.95, FormatCompliance: 1, AvgLatencyMs: 812.4, AvgTokens: 140.2,
				Passed: true, Failures: []string{},
			},
			{
				Name: "phi-4|mini", Role: models.RoleBudget, DatasetSize: 20,
				TaskCompletion: 0.75, FormatCompliance: 0.9, AvgLatencyMs: 300, AvgTokens: 80,
				Passed: false,
				Failures: []string{
					"phi-4|mini: task_completion = 0.750 below threshold 0.85",
					"phi-4|mini: format_compliance = 0.900 below threshold 0.95",
				},
			},
		},
		WinnerByMetric: map[string]string{
			"task_completion":   "gpt-4o",
			"format_compliance": "gpt-4o",
			"latency":           "gpt-4o",
			"token_efficiency":  "gpt-4o",
		},
		Alerts: []string{
			"phi-4|mini: task_completion = 0.750 below threshold 0.85",
			"phi-4|mini: format_compliance = 0.900 below threshold 0.95",
		},
		AllPassed: false,
	}
}

func regressed() *baseline.Result {
	return &baseline.Result{
		Checked: true, Location: "evaluation/baseline.json", Model: "gpt-4o", MaxDropPct: 10,
		Regressed: true,
		Deltas: []baseline.MetricDelta{
			{Metric: "task_completion", Baseline: 0.9, Current: 0.7, DropPct: 22.2, Regressed: true},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(newTestReport(), Options{})

	assert.True(t, strings.HasPrefix(md, "# Model Comparison Report\n"))
	assert.Contains(t, md, "**Generated**: 2026-06-15T12:00:00Z")
	assert.Contains(t, md, "**Report ID**: compare-20260615-120000-1a2b3c4d")
	assert.Contains(t, md, "**Models Tested**: 2")
	assert.Contains(t, md, "| gpt-4o | primary | 0.950 | 1.000 | 812ms | 140 | ✅ PASS |")
	assert.Contains(t, md, `| phi-4\|mini | budget | 0.750 | 0.900 | 300ms | 80 | ❌ FAIL |`)
	assert.Contains(t, md, "- ⚠️ phi-4|mini: task_completion = 0.750 below threshold 0.85")
	assert.Contains(t, md, "## Verdict: ❌ 1 model(s) failed threshold checks\n  - phi-4|mini\n")
	assert.NotContains(t, md, "## Not Evaluated")
	assert.NotContains(t, md, "## Regression")

	winners := md[strings.Index(md, "## Best By Metric"):]
	order := []string{"**task_completion**", "**format_compliance**", "**latency**", "**token_efficiency**"}
	last := -1
	for _, w := range order {
		idx := strings.Index(winners, w)
		require.Greater(t, idx, last, w)
		last = idx
	}
}

func TestRenderMarkdown_AllPassedAndOptionalSections(t *testing.T) {
	report := newTestReport()
	report.Models = report.Models[:1]
	report.Alerts = []string{}
	report.AllPassed = true

	md := RenderMarkdown(report, Options{
		Unevaluated: []string{"coherence >= 3.5", "cost per 1k queries <= 15"},
		Regression:  regressed(),
	})

	assert.Contains(t, md, "## Verdict: ✅ All models meet minimum thresholds")
	assert.NotContains(t, md, "## Alerts")
	assert.Contains(t, md, "## Not Evaluated")
	assert.Contains(t, md, "- coherence >= 3.5")
	assert.Contains(t, md, "## Regression")
	assert.Contains(t, md, "REGRESSION: task_completion dropped 22.2%")
}

func TestRenderMarkdown_DerivedFromSavedJSON(t *testing.T) {
	report := newTestReport()
	path := filepath.Join(t.TempDir(), JSONReportName)
	require.NoError(t, WriteJSON(report, path))

	loaded, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, RenderMarkdown(report, Options{}), RenderMarkdown(loaded, Options{}))

	var want, got bytes.Buffer
	PrintSummary(&want, report, Options{})
	PrintSummary(&got, loaded, Options{})
	assert.Equal(t, want.String(), got.String())

	md := RenderMarkdown(loaded, Options{})
	assert.NotContains(t, md, "## Not Evaluated")
	assert.NotContains(t, md, "## Regression")
}

func TestRenderMarkdown_EmptyReport(t *testing.T) {
	md := RenderMarkdown(&models.ComparisonReport{AllPassed: true}, Options{})
	assert.Contains(t, md, "**Models Tested**: 0")
	assert.NotContains(t, md, "## Best By Metric")
	assert.Contains(t, md, "## Verdict: ✅")
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(RenderMarkdown(newTestReport(), Options{}))
	require.NoError(t, err)

	s := string(html)
	assert.Contains(t, s, "<h1>Model Comparison Report</h1>")
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, "<td>gpt-4o</td>")
}

func TestSaveReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	junitPath := filepath.Join(dir, "junit.xml")

	written, err := SaveReports(newTestReport(), dir, Options{HTML: true, JUnitPath: junitPath})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, JSONReportName),
		filepath.Join(dir, MarkdownReportName),
		filepath.Join(dir, HTMLReportName),
		junitPath,
	}, written)

	for _, p := range written {
		assert.FileExists(t, p)
	}

	data, err := os.ReadFile(filepath.Join(dir, JSONReportName))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"report_id", "timestamp", "models_tested", "models", "winner_by_metric", "alerts", "all_passed"} {
		assert.Contains(t, raw, key)
	}

	back, err := ReadJSON(filepath.Join(dir, JSONReportName))
	require.NoError(t, err)
	assert.Equal(t, newTestReport(), back)
}

func TestSaveReports_MinimalOutputs(t *testing.T) {
	dir := t.TempDir()
	written, err := SaveReports(newTestReport(), dir, Options{})
	require.NoError(t, err)
	assert.Len(t, written, 2)
	assert.NoFileExists(t, filepath.Join(dir, HTMLReportName))
}

func TestConvertToJUnit(t *testing.T) {
	suites := ConvertToJUnit(newTestReport(), regressed())

	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 2, suites.Failures)
	require.Len(t, suites.TestSuites, 1)

	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 3)
	assert.Nil(t, cases[0].Failure)
	assert.Equal(t, "thresholds.primary", cases[0].Classname)
	assert.InDelta(t, 16.248, cases[0].Time, 0.001)

	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "ThresholdFailure", cases[1].Failure.Type)
	assert.Contains(t, cases[1].Failure.Body, "format_compliance = 0.900")

	assert.Equal(t, "regression", cases[2].Name)
	require.NotNil(t, cases[2].Failure)
	assert.Equal(t, "Regression", cases[2].Failure.Type)
}

func TestConvertToJUnit_SkippedRegression(t *testing.T) {
	suites := ConvertToJUnit(newTestReport(), &baseline.Result{SkipReason: "no baseline found"})

	assert.Equal(t, 1, suites.Skipped)
	last := suites.TestSuites[0].TestCases[2]
	require.NotNil(t, last.Skipped)
	assert.Equal(t, "no baseline found", last.Skipped.Message)
}

func TestWriteJUnitXML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, WriteJUnitXML(newTestReport(), nil, p))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 2, parsed.Tests)
	assert.Equal(t, 1, parsed.Failures)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, newTestReport(), Options{Unevaluated: []string{"coherence >= 3.5"}})

	out := buf.String()
	assert.Contains(t, out, "MODEL COMPARISON SUMMARY")
	assert.Contains(t, out, "[PASS]  gpt-4o")
	assert.Contains(t, out, "[FAIL]  phi-4|mini")
	assert.Contains(t, out, "phi-4|mini: Good (70-90%)")
	assert.Contains(t, out, "ALERTS (2)")
	assert.Contains(t, out, "NOT EVALUATED: coherence >= 3.5")
	assert.Contains(t, out, "❌ Some models failed threshold checks")
}

func TestPrintSummary_ColumnsAlignWithWideRunes(t *testing.T) {
	report := &models.ComparisonReport{
		Models: []models.AggregatedScore{
			{Name: "模型", Role: models.RolePrimary, Passed: true},
			{Name: "abcd", Role: models.RoleBudget, Passed: true},
		},
		AllPassed: true,
	}
	var buf bytes.Buffer
	PrintSummary(&buf, report, Options{})

	var roleCols []int
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "primary") || strings.Contains(line, "budget") {
			idx := strings.Index(line, "primary")
			if idx < 0 {
				idx = strings.Index(line, "budget")
			}
			prefix := line[:idx]
			roleCols = append(roleCols, runewidth.StringWidth(prefix))
		}
	}
	require.Len(t, roleCols, 2)
	assert.Equal(t, roleCols[0], roleCols[1])
}

func TestInterpretScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{"excellent", 0.95, "Excellent (>90%)"},
		{"good boundary", 0.90, "Good (70-90%)"},
		{"good low", 0.70, "Good (70-90%)"},
		{"needs work", 0.60, "Needs Work (50-70%)"},
		{"poor", 0.49, "Poor (<50%)"},
		{"zero", 0.0, "Poor (<50%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretScore(tt.score))
		})
	}
}
