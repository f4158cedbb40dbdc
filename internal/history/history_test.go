package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeReport(id string, at time.Time, allPassed bool) *models.ComparisonReport {
	return &models.ComparisonReport{
		ReportID:     id,
		Timestamp:    at,
		ModelsTested: 1,
		Models: []models.AggregatedScore{
			{Name: "gpt-4o", Role: models.RolePrimary, DatasetSize: 3, TaskCompletion: 1, FormatCompliance: 1, Passed: allPassed, Failures: []string{}},
		},
		WinnerByMetric: map[string]string{"task_completion": "gpt-4o"},
		Alerts:         []string{},
		AllPassed:      allPassed,
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	regression := &baseline.Result{
		Checked:    true,
		Location:   "baseline.json",
		Model:      "gpt-4o",
		MaxDropPct: 10,
		Deltas:     []baseline.MetricDelta{{Metric: "task_completion", Baseline: 0.9, Current: 0.7, DropPct: 22.2, Regressed: true}},
		Regressed:  true,
	}
	require.NoError(t, s.Save(ctx, makeReport("compare-1", at, true), regression))

	rec, err := s.Get(ctx, "compare-1")
	require.NoError(t, err)
	assert.Equal(t, "compare-1", rec.ReportID)
	assert.True(t, rec.Timestamp.Equal(at))
	assert.True(t, rec.AllPassed)
	assert.Equal(t, VerdictRegressed, rec.Verdict)
	assert.Equal(t, "gpt-4o", rec.Report.WinnerByMetric["task_completion"])
	require.NotNil(t, rec.Regression)
	assert.Equal(t, regression.Deltas, rec.Regression.Deltas)
}

func TestStore_GetUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, makeReport("compare-1", at, false), nil))
	require.NoError(t, s.Save(ctx, makeReport("compare-1", at, true), nil))

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].AllPassed)
	assert.Equal(t, VerdictNotRun, entries[0].Verdict)

	rec, err := s.Get(ctx, "compare-1")
	require.NoError(t, err)
	assert.Nil(t, rec.Regression)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		id := fmt.Sprintf("compare-%d", i)
		require.NoError(t, s.Save(ctx, makeReport(id, start.Add(time.Duration(i)*time.Hour), true), nil))
	}

	entries, err := s.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "compare-4", entries[0].ReportID)
	assert.Equal(t, "compare-3", entries[1].ReportID)
	assert.Equal(t, "compare-2", entries[2].ReportID)
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name string
		r    *baseline.Result
		want string
	}{
		{"not run", nil, VerdictNotRun},
		{"skipped", &baseline.Result{SkipReason: "no baseline found"}, VerdictSkipped},
		{"ok", &baseline.Result{Checked: true}, VerdictOK},
		{"regressed", &baseline.Result{Checked: true, Regressed: true}, VerdictRegressed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verdict(tt.r))
		})
	}
}
