// Package config loads and validates the YAML configuration described
// in spec.md §6. Configuration file loading is named as an external
// collaborator by spec.md §1's scope ("named only by their interface"),
// but a runnable repository still needs a concrete implementation of
// that interface; this package is it.
//
// Grounded on the original's ETLConfig dataclass
// (production_etl_pipeline.py) for field names and defaults, decoded
// here with gopkg.in/yaml.v3 instead of Python's yaml.safe_load.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object. Only the keys spec.md §6
// enumerates are recognized; unknown keys are ignored by yaml.v3's
// default decode behavior.
type Config struct {
	PayerEndpoints map[string]string `yaml:"payer_endpoints"`
	CPTWhitelist   []string          `yaml:"cpt_whitelist"`
	Processing     Processing        `yaml:"processing"`
	Output         Output            `yaml:"output"`
	QualityRules   QualityRules      `yaml:"quality_rules"`
}

// Processing holds per-run budgets and quality thresholds (spec.md §4.8,
// §4.6).
type Processing struct {
	BatchSize            int     `yaml:"batch_size"`
	ParallelWorkers      int     `yaml:"parallel_workers"`
	MaxFilesPerPayer     int     `yaml:"max_files_per_payer"`
	MaxRecordsPerFile    int     `yaml:"max_records_per_file"`
	MaxProcessingTimeSec int     `yaml:"max_processing_time_seconds"`
	MinCompletenessPct   float64 `yaml:"min_completeness_pct"`
	MinAccuracyScore     float64 `yaml:"min_accuracy_score"`
	MemoryThresholdMB    int     `yaml:"memory_threshold_mb"`
	NPIAllowlistFile     string  `yaml:"npi_allowlist_file"`
}

// Output names where columnar partitions and the manifest are written.
type Output struct {
	LocalDirectory string `yaml:"local_directory"`
	Compression    string `yaml:"compression"`
	S3             *S3    `yaml:"s3,omitempty"`
}

// S3 names an S3-compatible destination. Credentials are an external
// collaborator (spec.md §1 Non-goals: "credential management") and are
// resolved by the process environment/SDK default chain, never read
// from this struct.
type S3 struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// QualityRules holds rate-sanity bounds (spec.md §4.6, §4.4).
type QualityRules struct {
	Rates              RateBounds         `yaml:"rates"`
	HighCostProcedures HighCostProcedures `yaml:"high_cost_procedures"`
}

// RateBounds is the global [min_rate, max_rate] admission window.
type RateBounds struct {
	MinRate float64 `yaml:"min_rate"`
	MaxRate float64 `yaml:"max_rate"`
}

// HighCostProcedures carries per-code ceilings.
type HighCostProcedures struct {
	MaxReasonableRates map[string]float64 `yaml:"max_reasonable_rates"`
}

// defaults mirrors ETLConfig's dataclass defaults.
func defaults() Config {
	return Config{
		Processing: Processing{
			BatchSize:          10_000,
			ParallelWorkers:    4,
			MinCompletenessPct: 80.0,
			MinAccuracyScore:   0.85,
			MemoryThresholdMB:  2048,
		},
		Output: Output{
			LocalDirectory: "./output",
			Compression:    "snappy",
		},
		QualityRules: QualityRules{
			Rates: RateBounds{MinRate: 0.01, MaxRate: 100_000},
		},
	}
}

// Load reads and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("read config %s: %v", path, err)}
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("parse config %s: %v", path, err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the minimal required-field checks spec.md §7
// describes for ConfigError ("missing required field, malformed YAML").
func (c *Config) Validate() error {
	if len(c.PayerEndpoints) == 0 {
		return &ConfigError{Msg: "payer_endpoints: at least one endpoint is required"}
	}
	for name, url := range c.PayerEndpoints {
		if url == "" {
			return &ConfigError{Msg: fmt.Sprintf("payer_endpoints[%s]: empty URL", name)}
		}
	}
	if c.QualityRules.Rates.MaxRate > 0 && c.QualityRules.Rates.MaxRate < c.QualityRules.Rates.MinRate {
		return &ConfigError{Msg: "quality_rules.rates: max_rate must be >= min_rate"}
	}
	if c.Output.LocalDirectory == "" && c.Output.S3 == nil {
		return &ConfigError{Msg: "output: either local_directory or s3 must be set"}
	}
	return nil
}

// ConfigError is fatal and pre-run (spec.md §7).
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config error: " + e.Msg }
