package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can use "30s" / "2h" syntax.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds server and pipeline tuning. Values come from defaults, then
// an optional YAML file, then environment variables, in that order.
type Config struct {
	Listen string `yaml:"listen"`

	// Gateway pacing against the CDP API.
	RateLimit        float64  `yaml:"rate_limit"`
	RetryMaxAttempts int      `yaml:"retry_max_attempts"`
	RetryBaseDelay   Duration `yaml:"retry_base_delay"`

	// Data-asset workflow monitoring.
	WorkflowTimeout     Duration `yaml:"workflow_timeout"`
	PollInitialInterval Duration `yaml:"poll_initial_interval"`
	PollMaxInterval     Duration `yaml:"poll_max_interval"`
}

// Default returns production settings.
func Default() *Config {
	return &Config{
		Listen:              ":8080",
		RateLimit:           2,
		RetryMaxAttempts:    8,
		RetryBaseDelay:      Duration(3 * time.Second),
		WorkflowTimeout:     Duration(2 * time.Hour),
		PollInitialInterval: Duration(30 * time.Second),
		PollMaxInterval:     Duration(300 * time.Second),
	}
}

// Load builds the config. A .env file next to the binary is applied
// best-effort; path may be empty to skip the YAML overlay.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("COPIER_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("COPIER_RATE_LIMIT"); v != "" {
		c.RateLimit = cast.ToFloat64(v)
	}
	if v := os.Getenv("COPIER_RETRY_MAX_ATTEMPTS"); v != "" {
		c.RetryMaxAttempts = cast.ToInt(v)
	}
	if v := os.Getenv("COPIER_RETRY_BASE_DELAY"); v != "" {
		c.RetryBaseDelay = Duration(cast.ToDuration(v))
	}
	if v := os.Getenv("COPIER_WORKFLOW_TIMEOUT"); v != "" {
		c.WorkflowTimeout = Duration(cast.ToDuration(v))
	}
}
