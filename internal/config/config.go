// Package config holds all report configuration: output selection, naming
// and export tunables, per-metric switches and thresholds, and the
// settings of the optional history, serve, watch, and archive features.
// Defaults are always complete; a config file only overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"msqc/domain/core"
)

// File is the name the resolved configuration is re-emitted under in the
// report output directory, so every tunable is inspectable and editable.
const File = "report_config.yaml"

// DefaultHistoryFile is the run history database name, resolved against
// the report output directory unless overridden with an absolute path.
const DefaultHistoryFile = "qc_history.db"

// Output format identifiers accepted in report.output_formats.
const (
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// SupportedFormats lists the renderable output formats.
func SupportedFormats() []string {
	return []string{FormatHTML, FormatXLSX}
}

// Config is the complete configuration tree.
type Config struct {
	Report  ReportConfig            `yaml:"report"`
	Metrics map[string]MetricConfig `yaml:"metrics"`
	History HistoryConfig           `yaml:"history"`
	Serve   ServeConfig             `yaml:"serve"`
	Watch   WatchConfig             `yaml:"watch"`
	Archive ArchiveConfig           `yaml:"archive"`
	Logging LoggingConfig           `yaml:"logging"`
}

// ReportConfig holds the report-wide tunables.
type ReportConfig struct {
	// OutputFormats selects the rendered report formats, one or more of
	// SupportedFormats. The score matrix and interchange document are
	// always written regardless.
	OutputFormats []string `yaml:"output_formats"`

	// PageNumbers toggles page numbering in rendered reports.
	PageNumbers bool `yaml:"page_numbers"`

	// MinLabelLength is the minimum length of derived short names.
	MinLabelLength int `yaml:"min_label_length"`

	// InterchangeMinUnits is the minimum number of scored metrics the
	// interchange document requires before it is written.
	InterchangeMinUnits int `yaml:"interchange_min_units"`
}

// MetricConfig switches one metric on or off and overrides its thresholds.
// A nil Enabled means the metric's default (on).
type MetricConfig struct {
	Enabled    *bool              `yaml:"enabled"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// HistoryConfig configures the longitudinal score store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // relative paths resolve against the output directory
}

// ServeConfig configures the report HTTP server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig configures input-directory watching.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// ArchiveConfig configures report archiving after a successful run.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	LocalDir string `yaml:"local_dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	Region   string `yaml:"region"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
	File     string `yaml:"file"`     // optional log file next to stderr
}

// DefaultConfig returns the complete default configuration.
func DefaultConfig() *Config {
	return &Config{
		Report: ReportConfig{
			OutputFormats:       []string{FormatHTML},
			PageNumbers:         true,
			MinLabelLength:      8,
			InterchangeMinUnits: 2,
		},
		Metrics: map[string]MetricConfig{},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryFile,
		},
		Serve: ServeConfig{
			Addr: getEnvOrDefault("MSQC_SERVE_ADDR", ":8700"),
		},
		Watch: WatchConfig{
			DebounceMillis: getEnvIntOrDefault("MSQC_WATCH_DEBOUNCE_MS", 750),
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			S3Bucket: os.Getenv("MSQC_S3_BUCKET"),
			S3Prefix: getEnvOrDefault("MSQC_S3_PREFIX", "msqc-reports"),
			Region:   os.Getenv("AWS_REGION"),
		},
		Logging: LoggingConfig{
			Level:    getEnvOrDefault("MSQC_LOG_LEVEL", "info"),
			Encoding: "console",
		},
	}
}

// Load reads a configuration file and overlays it onto the defaults.
// A missing file returns the defaults; unrecognized keys are ignored.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: config %s: %v", core.ErrBadInput, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would corrupt a run.
func (c *Config) Validate() error {
	if len(c.Report.OutputFormats) == 0 {
		return core.NewUnknownFormatError("", SupportedFormats())
	}
	for _, f := range c.Report.OutputFormats {
		if f != FormatHTML && f != FormatXLSX {
			return core.NewUnknownFormatError(f, SupportedFormats())
		}
	}
	if c.Report.MinLabelLength < 1 {
		return fmt.Errorf("%w: report.min_label_length must be at least 1", core.ErrBadInput)
	}
	if c.Report.InterchangeMinUnits < 0 {
		return fmt.Errorf("%w: report.interchange_min_units must not be negative", core.ErrBadInput)
	}
	if c.Watch.DebounceMillis < 0 {
		return fmt.Errorf("%w: watch.debounce_ms must not be negative", core.ErrBadInput)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q (use debug, info, warn or error)", core.ErrBadInput, c.Logging.Level)
	}
	return nil
}

// Save writes the configuration in full.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// MetricEnabled reports whether a metric should run.
func (c *Config) MetricEnabled(id string) bool {
	mc, ok := c.Metrics[id]
	if !ok || mc.Enabled == nil {
		return true
	}
	return *mc.Enabled
}

// MetricThresholds returns the effective threshold map for a metric.
func (c *Config) MetricThresholds(id string) map[string]float64 {
	out := make(map[string]float64)
	if mc, ok := c.Metrics[id]; ok {
		for k, v := range mc.Thresholds {
			out[k] = v
		}
	}
	return out
}

// ResolveMetric records a metric's effective switch and thresholds so the
// re-emitted configuration lists every tunable, not only the overridden
// ones. Overrides already present win over the supplied defaults.
func (c *Config) ResolveMetric(id string, defaults map[string]float64) {
	if c.Metrics == nil {
		c.Metrics = make(map[string]MetricConfig)
	}
	mc := c.Metrics[id]
	if mc.Enabled == nil {
		on := c.MetricEnabled(id)
		mc.Enabled = &on
	}
	if mc.Thresholds == nil {
		mc.Thresholds = make(map[string]float64)
	}
	for k, v := range defaults {
		if _, ok := mc.Thresholds[k]; !ok {
			mc.Thresholds[k] = v
		}
	}
	c.Metrics[id] = mc
}

// HistoryPath resolves the history database location against the output
// directory when the configured path is relative.
func (c *Config) HistoryPath(outDir string) string {
	if c.History.Path == "" || filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(outDir, c.History.Path)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
