// Package config loads the formflow runtime configuration from a YAML file
// with FORMFLOW_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level configuration.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Autosave    AutosaveConfig    `yaml:"autosave"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Definitions DefinitionsConfig `yaml:"definitions"`
}

// APIConfig points at the remote REST API.
type APIConfig struct {
	BaseURL string            `yaml:"base_url" validate:"required,url"`
	Token   string            `yaml:"token,omitempty"`
	Timeout time.Duration     `yaml:"timeout" validate:"gt=0"`
	OpenAPI string            `yaml:"openapi,omitempty" validate:"omitempty,file"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// AutosaveConfig controls the debounced draft writer.
type AutosaveConfig struct {
	Delay time.Duration `yaml:"delay" validate:"gt=0"`
	// FlushOnClose writes a pending draft when a session closes instead of
	// dropping it.
	FlushOnClose bool `yaml:"flush_on_close"`
}

// LoggingConfig selects the zap logger flavour.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// MetricsConfig exposes Prometheus metrics over HTTP when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
}

// DefinitionsConfig adds form definitions from disk to the built-ins.
type DefinitionsConfig struct {
	Dir string `yaml:"dir,omitempty" validate:"omitempty,dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 30 * time.Second,
		},
		Autosave: AutosaveConfig{
			Delay:        800 * time.Millisecond,
			FlushOnClose: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks the struct tags and reports every failing field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("FORMFLOW_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("FORMFLOW_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("FORMFLOW_OPENAPI"); v != "" {
		c.API.OpenAPI = v
	}
	if v := os.Getenv("FORMFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("FORMFLOW_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("FORMFLOW_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("FORMFLOW_DEFINITIONS_DIR"); v != "" {
		c.Definitions.Dir = v
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"FORMFLOW_API_TIMEOUT", &c.API.Timeout},
		{"FORMFLOW_AUTOSAVE_DELAY", &c.Autosave.Delay},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.key, err)
		}
		*d.target = parsed
	}
	return nil
}
