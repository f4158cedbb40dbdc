package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one comparison report.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one model, or to the regression check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a failed gate.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a check as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a report to JUnit XML: one test case per model
// and, when regression is non-nil, one for the regression check.
func ConvertToJUnit(report *models.ComparisonReport, regression *baseline.Result) *JUnitTestSuites {
	suite := JUnitTestSuite{
		Name:      "modelgate",
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "report_id", Value: report.ReportID},
			{Name: "models_tested", Value: fmt.Sprintf("%d", report.ModelsTested)},
			{Name: "all_passed", Value: fmt.Sprintf("%t", report.AllPassed)},
		},
	}

	for i := range report.Models {
		suite.TestCases = append(suite.TestCases, convertScore(&report.Models[i]))
	}
	if regression != nil {
		suite.TestCases = append(suite.TestCases, convertRegression(regression))
	}

	for _, tc := range suite.TestCases {
		suite.Tests++
		if tc.Failure != nil {
			suite.Failures++
		}
		if tc.Skipped != nil {
			suite.Skipped++
		}
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Skipped:    suite.Skipped,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertScore(s *models.AggregatedScore) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      s.Name,
		Classname: "thresholds." + string(s.Role),
		Time:      s.AvgLatencyMs * float64(s.DatasetSize) / 1000.0,
	}
	if !s.Passed {
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s failed %d threshold check(s)", s.Name, len(s.Failures)),
			Type:    "ThresholdFailure",
			Body:    strings.Join(s.Failures, "\n"),
		}
	}
	return tc
}

func convertRegression(r *baseline.Result) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      "regression",
		Classname: "baseline",
	}
	if !r.Checked {
		tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
		return tc
	}
	if r.Regressed {
		lines := make([]string, 0, len(r.Deltas))
		for _, d := range r.Deltas {
			lines = append(lines, d.String())
		}
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s regressed against %s", r.Model, r.Location),
			Type:    "Regression",
			Body:    strings.Join(lines, "\n"),
		}
	}
	return tc
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(report *models.ComparisonReport, regression *baseline.Result, path string) error {
	suites := ConvertToJUnit(report, regression)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return fmt.Errorf("writing JUnit XML: %w", err)
	}
	return nil
}
