// Package resultstore reads the per-model result documents of a comparison
// run from a results directory.
package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/agentx-dev/modelgate/internal/utils"
	"github.com/agentx-dev/modelgate/internal/validation"
	"golang.org/x/sync/errgroup"
)

// ErrNoResults is returned when the results directory holds no result documents.
var ErrNoResults = errors.New("no result files found")

// BaselineFileName is never treated as a model document, since the default
// baseline location lives inside the results directory.
const BaselineFileName = "baseline.json"

const defaultParallelism = 4

type options struct {
	strict      bool
	parallelism int
}

// Option customizes [Load].
type Option func(*options)

// WithStrict validates every document against the result schema before decoding.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithParallelism bounds the number of documents decoded at once.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// SchemaError lists every schema violation found in a result document.
type SchemaError struct {
	Path       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s does not match the result schema:\n  %s", e.Path, strings.Join(e.Violations, "\n  "))
}

// ListFiles returns the result document paths in dir in sorted file-name order.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading results directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") || name == BaselineFileName {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads every result document in dir. The returned runs are sorted by
// model name regardless of file names or how decoding was scheduled.
func Load(ctx context.Context, dir string, opts ...Option) ([]*models.ModelRunResult, error) {
	o := options{parallelism: defaultParallelism}
	for _, opt := range opts {
		opt(&o)
	}

	paths, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoResults, dir)
	}

	runs := make([]*models.ModelRunResult, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.parallelism)

	for i, p := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			run, err := readFile(p, o.strict)
			if err != nil {
				return err
			}
			runs[i] = run
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(runs))
	for _, r := range runs {
		if prev, ok := seen[r.Model]; ok {
			return nil, fmt.Errorf("model %q appears in both %s and %s", r.Model, prev, r.Source)
		}
		seen[r.Model] = r.Source
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Model < runs[j].Model })

	slog.Debug("Loaded result documents", "dir", dir, "count", len(runs))
	return runs, nil
}

func readFile(path string, strict bool) (*models.ModelRunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}

	if strict {
		if violations := validation.ValidateResultBytes(data); len(violations) > 0 {
			return nil, &SchemaError{Path: path, Violations: violations}
		}
	}

	run, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	run.Source = path
	return run, nil
}

// Decode parses one result document. A missing role reads as unknown and a
// missing model name is an error.
func Decode(data []byte) (*models.ModelRunResult, error) {
	var run models.ModelRunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	if run.Model == "" {
		return nil, errors.New("result document has no model name")
	}
	if run.Role == "" {
		run.Role = models.RoleUnknown
	}
	if run.Results == nil {
		run.Results = []models.QueryOutcome{}
	}
	return &run, nil
}

// Write stores run as indented JSON at path, creating parent directories.
func Write(path string, run *models.ModelRunResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling result for %s: %w", run.Model, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result file: %w", err)
	}
	return nil
}

// FileName returns the document name used for a model: slashes and spaces
// become dashes.
func FileName(model string) string {
	return utils.SafeFileName(model) + ".json"
}
