package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// LoadCSV reads a CSV dataset. The first row is treated as headers (column
// names); every later row becomes one item.
func LoadCSV(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	items := make([]Item, 0, len(records)-1)

	for _, record := range records[1:] {
		fields := make(map[string]any, len(headers))
		for j, h := range headers {
			fields[h] = record[j]
		}
		items = append(items, NewItem(fields))
	}

	return items, nil
}
