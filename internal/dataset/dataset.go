// Package dataset loads evaluation datasets: JSON Lines files, one query per
// line, or CSV files with a header row.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const maxLineSize = 16 * 1024 * 1024

// Item is one evaluation query.
type Item struct {
	Query    string
	Expected string
	// Fields holds every field of the source record.
	Fields map[string]any
}

// NewItem builds an item from a decoded record. The query comes from
// "query", falling back to "input"; the expected answer from
// "expected_response", falling back to "response".
func NewItem(fields map[string]any) Item {
	return Item{
		Query:    firstString(fields, "query", "input"),
		Expected: firstString(fields, "expected_response", "response"),
		Fields:   fields,
	}
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Load reads the dataset at path, choosing the format by extension.
func Load(path string) ([]Item, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadCSV(path)
	}
	return LoadJSONL(path)
}

// LoadJSONL reads a JSON Lines dataset. Blank lines are ignored and lines
// that are not a JSON object are skipped with a warning.
func LoadJSONL(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var items []Item
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
			if err == nil {
				err = errors.New("not a JSON object")
			}
			slog.Warn("Invalid JSON in dataset, skipping line", "path", path, "line", lineno, "error", err)
			continue
		}
		items = append(items, NewItem(fields))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}

	slog.Debug("Loaded dataset", "path", path, "items", len(items))
	return items, nil
}

// Range returns items in the given range [start, end] (1-based, inclusive).
// An end beyond the dataset is clamped.
func Range(items []Item, start, end int) ([]Item, error) {
	if start < 1 {
		return nil, fmt.Errorf("dataset: range start must be >= 1, got %d", start)
	}
	if end < start {
		return nil, fmt.Errorf("dataset: range end (%d) must be >= start (%d)", end, start)
	}
	if start > len(items) {
		return []Item{}, nil
	}
	end = min(end, len(items))
	return items[start-1 : end], nil
}

// ParseRange parses "N" or "N-M" into a 1-based inclusive range.
func ParseRange(s string) (start, end int, err error) {
	lo, hi, found := strings.Cut(s, "-")
	start, err = strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("dataset: invalid range %q", s)
	}
	if !found {
		return start, start, nil
	}
	end, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("dataset: invalid range %q", s)
	}
	return start, end, nil
}
