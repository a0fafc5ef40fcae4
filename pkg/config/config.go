// Package config loads and validates the CloudGovern application
// configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration for the govern CLI.
type Config struct {
	// Database configures the SQLite persistence layer.
	Database DatabaseConfig `yaml:"database"`

	// Policies configures policy loading.
	Policies PoliciesConfig `yaml:"policies"`

	// Conditions configures custom condition backends.
	Conditions ConditionsConfig `yaml:"conditions"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures distributed tracing.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" validate:"required"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=0"`

	// MaxIdleConns bounds idle connections.
	MaxIdleConns int `yaml:"max_idle_conns" validate:"gte=0"`

	// ConnMaxLifetime bounds connection reuse.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// PoliciesConfig configures policy loading.
type PoliciesConfig struct {
	// Dir is the directory policy documents are loaded from.
	Dir string `yaml:"dir"`

	// Watch enables hot reload of the policy directory.
	Watch bool `yaml:"watch"`

	// IncludeBuiltin loads the built-in policy set alongside Dir.
	IncludeBuiltin bool `yaml:"include_builtin"`
}

// ConditionsConfig registers custom condition sources by name. Names are
// referenced from policy documents through the custom condition kind.
type ConditionsConfig struct {
	// Expr maps condition names to expr-lang boolean expressions.
	Expr map[string]string `yaml:"expr"`

	// Rego maps condition names to Rego module sources. Each module must
	// define a boolean match rule.
	Rego map[string]string `yaml:"rego"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// Format is console or json.
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	Enabled bool `yaml:"enabled"`

	// Exporter is otlp, stdout, or none.
	Exporter string `yaml:"exporter" validate:"omitempty,oneof=otlp stdout none"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint"`

	// SamplingRate is the trace sampling rate.
	SamplingRate float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether the metrics server runs.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP listen address.
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics HTTP path.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "govern.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Policies: PoliciesConfig{
			IncludeBuiltin: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9090",
			Path:          "/metrics",
		},
	}
}

// Load reads a YAML configuration file, overlaying the defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
