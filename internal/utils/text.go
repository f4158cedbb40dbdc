package utils

import (
	"fmt"
	"os"
	"strings"
)

// TextOrFile returns the contents of the file named by value when such a
// file exists, and value itself otherwise.
func TextOrFile(value string) (string, error) {
	if value == "" || strings.Contains(value, "\n") {
		return value, nil
	}
	st, err := os.Stat(value)
	if err != nil || st.IsDir() {
		return value, nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", value, err)
	}
	return string(data), nil
}

// SafeFileName replaces path separators and spaces with dashes.
func SafeFileName(name string) string {
	return strings.NewReplacer("/", "-", " ", "-").Replace(name)
}
