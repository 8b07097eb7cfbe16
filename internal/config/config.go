// Package config loads cyberedit settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manash/cyberedit/pkg/models"
)

type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// DBPath is the SQLite state file. Empty means ~/.cyberedit/state.db.
	DBPath       string `yaml:"db_path"`
	TrialLimit   int    `yaml:"trial_limit"`
	LicenseDelay string `yaml:"license_delay"`
	Quality      string `yaml:"quality"`
	OutputDir    string `yaml:"output_dir"`
	// Timeout bounds each HTTP request to the service. Empty leaves the
	// transport default in place.
	Timeout string        `yaml:"timeout"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider:     string(models.ProviderGemini),
		Model:        "gemini-2.5-flash-image-preview",
		TrialLimit:   5,
		LicenseDelay: "1500ms",
		Quality:      string(models.DefaultQuality),
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

func DefaultPath() (string, error) {
	if dir := os.Getenv("CYBEREDIT_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "cyberedit", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CYBEREDIT_DB"); path != "" {
		c.DBPath = path
	}
	if level := os.Getenv("CYBEREDIT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func (c *Config) Validate() error {
	switch models.ProviderType(c.Provider) {
	case models.ProviderGemini, models.ProviderOpenAI:
	default:
		return fmt.Errorf("invalid provider: %q (valid: gemini, openai)", c.Provider)
	}
	if c.TrialLimit < 0 {
		return fmt.Errorf("trial_limit must not be negative, got %d", c.TrialLimit)
	}
	if _, err := models.ParseQualityTier(c.Quality); err != nil {
		return err
	}
	if c.LicenseDelay != "" {
		if _, err := time.ParseDuration(c.LicenseDelay); err != nil {
			return fmt.Errorf("invalid license_delay: %w", err)
		}
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	return nil
}

// GetLicenseDelay returns the license activation delay. An explicit "0s"
// applies a valid key at once.
func (c *Config) GetLicenseDelay() time.Duration {
	if c.LicenseDelay == "" {
		return 1500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.LicenseDelay)
	if err != nil {
		return 1500 * time.Millisecond
	}
	if d == 0 {
		return -1
	}
	return d
}

func (c *Config) GetTimeoutSec() int {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

func (c *Config) GetQuality() models.QualityTier {
	q, err := models.ParseQualityTier(c.Quality)
	if err != nil {
		return models.DefaultQuality
	}
	return q
}
