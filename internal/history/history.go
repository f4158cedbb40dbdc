// Package history archives comparison reports and their regression verdicts
// in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/agentx-dev/modelgate/internal/baseline"
	"github.com/agentx-dev/modelgate/internal/models"

	_ "modernc.org/sqlite"
)

// ErrReportNotFound is returned by [Store.Get] for an unknown report id.
var ErrReportNotFound = errors.New("report not found")

// Regression verdicts as recorded in the archive.
const (
	VerdictNotRun    = "not-run"
	VerdictSkipped   = "skipped"
	VerdictOK        = "ok"
	VerdictRegressed = "regressed"
)

const defaultListLimit = 20

// Entry summarizes one archived report.
type Entry struct {
	ReportID     string
	Timestamp    time.Time
	ModelsTested int
	AllPassed    bool
	Verdict      string
}

// Record is a fully restored archived report.
type Record struct {
	Entry
	Report     *models.ComparisonReport
	Regression *baseline.Result
}

// Store is a SQLite-backed report archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("init schema: %w", err)
	}

	slog.Debug("Opened report history", "path", path)
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS reports (
    report_id TEXT PRIMARY KEY,
    created_unix_ns INTEGER NOT NULL,
    models_tested INTEGER NOT NULL DEFAULT 0,
    all_passed BOOLEAN NOT NULL DEFAULT 0,
    regression TEXT NOT NULL DEFAULT 'not-run',
    report_json TEXT NOT NULL,
    regression_json TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_unix_ns);
`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives report together with the regression verdict, which may be
// nil when no regression check ran. Saving the same report id twice
// replaces the earlier row.
func (s *Store) Save(ctx context.Context, report *models.ComparisonReport, regression *baseline.Result) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	var regressionJSON []byte
	if regression != nil {
		if regressionJSON, err = json.Marshal(regression); err != nil {
			return fmt.Errorf("marshaling regression result: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (report_id, created_unix_ns, models_tested, all_passed, regression, report_json, regression_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ReportID, report.Timestamp.UnixNano(), report.ModelsTested, report.AllPassed,
		Verdict(regression), string(reportJSON), string(regressionJSON))
	if err != nil {
		return fmt.Errorf("saving report %s: %w", report.ReportID, err)
	}
	return nil
}

// List returns the most recent reports first. A non-positive limit uses
// the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT report_id, created_unix_ns, models_tested, all_passed, regression
		 FROM reports ORDER BY created_unix_ns DESC, report_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get restores one archived report.
func (s *Store) Get(ctx context.Context, reportID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report_id, created_unix_ns, models_tested, all_passed, regression, report_json, regression_json
		 FROM reports WHERE report_id = ?`, reportID)

	var (
		rec            Record
		createdNs      int64
		reportJSON     string
		regressionJSON string
	)
	err := row.Scan(&rec.ReportID, &createdNs, &rec.ModelsTested, &rec.AllPassed, &rec.Verdict, &reportJSON, &regressionJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", reportID, err)
	}
	rec.Timestamp = time.Unix(0, createdNs).UTC()

	rec.Report = &models.ComparisonReport{}
	if err := json.Unmarshal([]byte(reportJSON), rec.Report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", reportID, err)
	}
	if regressionJSON != "" {
		rec.Regression = &baseline.Result{}
		if err := json.Unmarshal([]byte(regressionJSON), rec.Regression); err != nil {
			return nil, fmt.Errorf("decoding regression result for %s: %w", reportID, err)
		}
	}
	return &rec, nil
}

// Verdict names the archived regression state for r.
func Verdict(r *baseline.Result) string {
	switch {
	case r == nil:
		return VerdictNotRun
	case !r.Checked:
		return VerdictSkipped
	case r.Regressed:
		return VerdictRegressed
	default:
		return VerdictOK
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*Entry, error) {
	var (
		e         Entry
		createdNs int64
	)
	if err := row.Scan(&e.ReportID, &createdNs, &e.ModelsTested, &e.AllPassed, &e.Verdict); err != nil {
		return nil, fmt.Errorf("scanning report row: %w", err)
	}
	e.Timestamp = time.Unix(0, createdNs).UTC()
	return &e, nil
}
