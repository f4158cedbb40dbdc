// Package reporting renders comparison reports as JSON, Markdown, HTML,
// JUnit XML and a terminal summary.
//
// The Markdown, HTML and terminal views are derived from the JSON report
// alone, except for two separately headed supplementary sections taken from
// [Options]: "Not Evaluated" (configured thresholds no metric backs) and
// "Regression" (the baseline verdict). Neither is part of the JSON report;
// the regression verdict is archived next to it by the history store.
package reporting

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/models"
)

// Output file names inside the report directory.
const (
	JSONReportName     = "comparison-report.json"
	MarkdownReportName = "comparison-report.md"
	HTMLReportName     = "comparison-report.html"
)

// Options controls the optional parts of a rendering. Unevaluated and
// Regression add supplementary sections that are not in the JSON report.
type Options struct {
	// Unevaluated lists configured thresholds that were not computed.
	Unevaluated []string
	// Regression is the baseline verdict, when the check ran.
	Regression *baseline.Result
	// HTML also writes the Markdown view converted to HTML.
	HTML bool
	// JUnitPath also writes JUnit XML to this path.
	JUnitPath string
}

// MarshalReport returns the indented JSON form of report.
func MarshalReport(report *models.ComparisonReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling report: %w", err)
	}
	return data, nil
}

// WriteJSON writes report as indented JSON to path.
func WriteJSON(report *models.ComparisonReport, path string) error {
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing JSON report: %w", err)
	}
	return nil
}

// ReadJSON loads a report previously written by [WriteJSON].
func ReadJSON(path string) (*models.ComparisonReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var report models.ComparisonReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}

// SaveReports writes the JSON and Markdown reports into dir, plus HTML and
// JUnit output when requested. It returns the paths written.
func SaveReports(report *models.ComparisonReport, dir string, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string

	jsonPath := filepath.Join(dir, JSONReportName)
	if err := WriteJSON(report, jsonPath); err != nil {
		return written, err
	}
	written = append(written, jsonPath)

	md := RenderMarkdown(report, opts)
	mdPath := filepath.Join(dir, MarkdownReportName)
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return written, fmt.Errorf("writing Markdown report: %w", err)
	}
	written = append(written, mdPath)

	if opts.HTML {
		html, err := RenderHTML(md)
		if err != nil {
			return written, err
		}
		htmlPath := filepath.Join(dir, HTMLReportName)
		if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
			return written, fmt.Errorf("writing HTML report: %w", err)
		}
		written = append(written, htmlPath)
	}

	if opts.JUnitPath != "" {
		if err := WriteJUnitXML(report, opts.Regression, opts.JUnitPath); err != nil {
			return written, err
		}
		written = append(written, opts.JUnitPath)
	}

	slog.Debug("Saved reports", "dir", dir, "files", len(written))
	return written, nil
}
