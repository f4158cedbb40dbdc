// Package projectconfig provides the Config struct and loader for the
// models.yaml comparison configuration: the model matrix, the pass/fail
// thresholds and MODELGATE_* environment overrides.
package projectconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/agentx-dev/modelgate/internal/models"
	"github.com/go-viper/mapstructure/v2"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Default values for configuration. These are the single source of truth;
// New() and DefaultThresholds() reference them and no other code should
// duplicate them.
const (
	DefaultConfigPath   = "config/models.yaml"
	DefaultDatasetPath  = "evaluation/core-regression.jsonl"
	DefaultResultsDir   = "evaluation/results"
	DefaultOutputDir    = "evaluation"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultProvider     = "azure"

	DefaultEngine     = "copilot-sdk"
	DefaultWorkers    = 4
	DefaultTimeoutSec = 120
	DefaultCacheDir   = ".modelgate-cache"

	DefaultTaskCompletion   = 0.85
	DefaultCoherence        = 3.5
	DefaultRelevance        = 3.5
	DefaultFormatCompliance = 0.95
	DefaultToolAccuracy     = 0.90
	DefaultMaxLatencyMs     = 5000
	DefaultMaxCostPer1K     = 15.0
	DefaultMaxRegressionPct = 10.0

	envPrefix = "MODELGATE"
)

// Thresholds are the minimum pass criteria applied to every model.
type Thresholds struct {
	TaskCompletion   float64 `mapstructure:"task_completion" json:"task_completion"`
	Coherence        float64 `mapstructure:"coherence" json:"coherence"`
	Relevance        float64 `mapstructure:"relevance" json:"relevance"`
	FormatCompliance float64 `mapstructure:"format_compliance" json:"format_compliance"`
	ToolAccuracy     float64 `mapstructure:"tool_accuracy" json:"tool_accuracy"`
	MaxLatencyMs     float64 `mapstructure:"max_latency_ms" json:"max_latency_ms"`
	MaxCostPer1K     float64 `mapstructure:"max_cost_per_1k" json:"max_cost_per_1k"`
	MaxRegressionPct float64 `mapstructure:"max_regression_pct" json:"max_regression_pct"`
}

// DefaultThresholds returns the thresholds used when configuration is silent.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TaskCompletion:   DefaultTaskCompletion,
		Coherence:        DefaultCoherence,
		Relevance:        DefaultRelevance,
		FormatCompliance: DefaultFormatCompliance,
		ToolAccuracy:     DefaultToolAccuracy,
		MaxLatencyMs:     DefaultMaxLatencyMs,
		MaxCostPer1K:     DefaultMaxCostPer1K,
		MaxRegressionPct: DefaultMaxRegressionPct,
	}
}

// ModelSpec is one model in the comparison matrix.
type ModelSpec struct {
	Name       string      `yaml:"name"`
	Deployment string      `yaml:"deployment,omitempty"`
	Role       models.Role `yaml:"-"`
	Provider   string      `yaml:"provider,omitempty"`
}

// Environment holds MODELGATE_* overrides.
type Environment struct {
	// BlobServiceURL is the Azure Blob Storage service URL used for
	// azblob:// baseline locations.
	BlobServiceURL string `envconfig:"BLOB_SERVICE_URL"`
	// HistoryDB is the SQLite archive path; empty disables the archive.
	HistoryDB string `envconfig:"HISTORY_DB"`
	CacheDir  string `envconfig:"CACHE_DIR"`
}

// Config is the top-level configuration loaded from models.yaml.
type Config struct {
	Models     []ModelSpec
	Thresholds Thresholds
	Env        Environment

	// Path is the file the configuration was read from; empty when defaults were used.
	Path string
}

// fileConfig mirrors the on-disk layout. Thresholds stay an open map here
// only long enough to be decoded onto the typed defaults.
type fileConfig struct {
	Models     map[string]ModelSpec `yaml:"models"`
	Thresholds map[string]any       `yaml:"thresholds"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Thresholds: DefaultThresholds(),
		Env: Environment{
			CacheDir: DefaultCacheDir,
		},
	}
}

// Load reads the configuration at path and applies environment overrides.
// When required is false a missing file yields defaults with a nil error;
// when required is true (the operator named the file) it is an error.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			slog.Debug("No configuration file found, using defaults", "path", path)
			cfg := New()
			if err := applyEnv(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Path = path

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes models.yaml content onto the defaults.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	cfg := New()

	th, unused, err := DecodeThresholds(fc.Thresholds)
	if err != nil {
		return nil, err
	}
	if len(unused) > 0 {
		slog.Debug("Ignoring unknown threshold keys", "keys", unused)
	}
	cfg.Thresholds = th

	specs, err := modelSpecs(fc.Models)
	if err != nil {
		return nil, err
	}
	cfg.Models = specs

	return cfg, nil
}

// DecodeThresholds overlays raw onto [DefaultThresholds]. Keys that are not
// threshold fields are returned as unused rather than rejected.
func DecodeThresholds(raw map[string]any) (Thresholds, []string, error) {
	th := DefaultThresholds()
	if len(raw) == 0 {
		return th, nil, nil
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &th,
		Metadata: &md,
		TagName:  "mapstructure",
	})
	if err != nil {
		return DefaultThresholds(), nil, err
	}

	if err := dec.Decode(raw); err != nil {
		return DefaultThresholds(), nil, fmt.Errorf("decoding thresholds: %w", err)
	}

	sort.Strings(md.Unused)
	return th, md.Unused, nil
}

// modelSpecs flattens the role-keyed model map into canonical role order.
func modelSpecs(raw map[string]ModelSpec) ([]ModelSpec, error) {
	specs := make([]ModelSpec, 0, len(raw))
	for role, spec := range raw {
		if spec.Name == "" {
			return nil, fmt.Errorf("model for role %q has no name", role)
		}
		spec.Role = models.Role(role)
		if !spec.Role.IsKnown() {
			slog.Warn("Unrecognized model role", "role", role, "model", spec.Name)
		}
		if spec.Deployment == "" {
			spec.Deployment = spec.Name
		}
		if spec.Provider == "" {
			spec.Provider = DefaultProvider
		}
		specs = append(specs, spec)
	}

	sort.SliceStable(specs, func(i, j int) bool {
		ri, rj := models.RoleRank(specs[i].Role), models.RoleRank(specs[j].Role)
		if ri != rj {
			return ri < rj
		}
		return specs[i].Role < specs[j].Role
	})
	return specs, nil
}

func applyEnv(cfg *Config) error {
	if err := envconfig.Process(envPrefix, &cfg.Env); err != nil {
		return fmt.Errorf("reading %s_* environment: %w", envPrefix, err)
	}
	if cfg.Env.CacheDir == "" {
		cfg.Env.CacheDir = DefaultCacheDir
	}
	return nil
}
