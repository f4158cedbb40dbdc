package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/agentx-dev/modelgate/internal/compare"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RenderMarkdown produces the human-readable view of report. With a zero
// Options it depends on nothing but what the JSON report carries.
func RenderMarkdown(report *models.ComparisonReport, opts Options) string {
	var b strings.Builder

	b.WriteString("# Model Comparison Report\n\n")
	fmt.Fprintf(&b, "**Generated**: %s  \n", report.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Report ID**: %s  \n", report.ReportID)
	fmt.Fprintf(&b, "**Models Tested**: %d\n\n", report.ModelsTested)

	b.WriteString("## Results\n\n")
	b.WriteString("| Model | Role | Task Completion | Format Compliance | Avg Latency | Avg Tokens | Status |\n")
	b.WriteString("|-------|------|---------------:|------------------:|------------:|-----------:|--------|\n")
	for _, m := range report.Models {
		status := "✅ PASS"
		if !m.Passed {
			status = "❌ FAIL"
		}
		fmt.Fprintf(&b, "| %s | %s | %.3f | %.3f | %.0fms | %.0f | %s |\n",
			escapeCell(m.Name), m.Role, m.TaskCompletion, m.FormatCompliance, m.AvgLatencyMs, m.AvgTokens, status)
	}

	if len(report.WinnerByMetric) > 0 {
		b.WriteString("\n## Best By Metric\n\n")
		for _, metric := range compare.WinnerMetrics {
			if winner, ok := report.WinnerByMetric[metric]; ok {
				fmt.Fprintf(&b, "- **%s**: %s\n", metric, winner)
			}
		}
	}

	if len(report.Alerts) > 0 {
		b.WriteString("\n## Alerts\n\n")
		for _, alert := range report.Alerts {
			fmt.Fprintf(&b, "- ⚠️ %s\n", alert)
		}
	}

	if len(opts.Unevaluated) > 0 {
		b.WriteString("\n## Not Evaluated\n\n")
		b.WriteString("These configured thresholds need an external judge and were not checked:\n\n")
		for _, u := range opts.Unevaluated {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}

	if r := opts.Regression; r != nil {
		b.WriteString("\n## Regression\n\n")
		if !r.Checked {
			fmt.Fprintf(&b, "Skipped: %s\n", r.SkipReason)
		} else {
			fmt.Fprintf(&b, "Baseline `%s`, primary model %s, tolerance %g%%\n\n", r.Location, r.Model, r.MaxDropPct)
			for _, d := range r.Deltas {
				fmt.Fprintf(&b, "- %s\n", d)
			}
		}
	}

	b.WriteString("\n")
	if report.AllPassed {
		b.WriteString("## Verdict: ✅ All models meet minimum thresholds\n")
	} else {
		failed := report.FailedModels()
		fmt.Fprintf(&b, "## Verdict: ❌ %d model(s) failed threshold checks\n", len(failed))
		for _, name := range failed {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}

	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderHTML converts a Markdown rendering into a standalone HTML page.
func RenderHTML(markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("converting report to HTML: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Model Comparison Report</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
