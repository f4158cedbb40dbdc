package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentx-dev/modelgate/internal/compare"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/mattn/go-runewidth"
)

const ruleWidth = 60

// InterpretScore returns a plain-language label for a score in [0, 1].
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// PrintSummary writes an aligned terminal summary of report to w.
func PrintSummary(w io.Writer, report *models.ComparisonReport, opts Options) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\n  MODEL COMPARISON SUMMARY\n%s\n\n", rule, rule) //nolint:errcheck

	headers := []string{"", "MODEL", "ROLE", "TASK", "FORMAT", "LATENCY", "TOKENS"}
	rows := make([][]string, 0, len(report.Models))
	for _, m := range report.Models {
		status := "PASS"
		if !m.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{
			"[" + status + "]",
			m.Name,
			string(m.Role),
			fmt.Sprintf("%.3f", m.TaskCompletion),
			fmt.Sprintf("%.3f", m.FormatCompliance),
			fmt.Sprintf("%.0fms", m.AvgLatencyMs),
			fmt.Sprintf("%.0f", m.AvgTokens),
		})
	}
	printTable(w, headers, rows)

	for _, m := range report.Models {
		if len(m.Failures) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s: %s\n", m.Name, InterpretScore(m.TaskCompletion)) //nolint:errcheck
		for _, f := range m.Failures {
			fmt.Fprintf(w, "    ⚠ %s\n", f) //nolint:errcheck
		}
	}

	if len(report.WinnerByMetric) > 0 {
		fmt.Fprintf(w, "\n  BEST BY METRIC\n") //nolint:errcheck
		for _, metric := range compare.WinnerMetrics {
			if winner, ok := report.WinnerByMetric[metric]; ok {
				fmt.Fprintf(w, "    %s %s\n", padRight(metric+":", 18), winner) //nolint:errcheck
			}
		}
	}

	if len(report.Alerts) > 0 {
		fmt.Fprintf(w, "\n  ALERTS (%d)\n", len(report.Alerts)) //nolint:errcheck
		for _, alert := range report.Alerts {
			fmt.Fprintf(w, "    - %s\n", alert) //nolint:errcheck
		}
	}

	if len(opts.Unevaluated) > 0 {
		fmt.Fprintf(w, "\n  NOT EVALUATED: %s\n", strings.Join(opts.Unevaluated, ", ")) //nolint:errcheck
	}

	if r := opts.Regression; r != nil {
		fmt.Fprintf(w, "\n  REGRESSION CHECK\n") //nolint:errcheck
		if !r.Checked {
			fmt.Fprintf(w, "    skipped: %s\n", r.SkipReason) //nolint:errcheck
		}
		for _, d := range r.Deltas {
			fmt.Fprintf(w, "    %s\n", d) //nolint:errcheck
		}
	}

	fmt.Fprintf(w, "\n%s\n", rule) //nolint:errcheck
	if report.AllPassed {
		fmt.Fprintf(w, "  ✅ All models meet minimum thresholds\n") //nolint:errcheck
	} else {
		fmt.Fprintf(w, "  ❌ Some models failed threshold checks\n") //nolint:errcheck
	}
	fmt.Fprintf(w, "%s\n\n", rule) //nolint:errcheck
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = padRight(c, widths[i])
		}
		fmt.Fprintf(w, "  %s\n", strings.TrimRight(strings.Join(parts, "  "), " ")) //nolint:errcheck
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
