// Package config handles reading and writing .medsplain/config.yaml and the
// environment overrides applied on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .medsplain/config.yaml.
type Config struct {
	Version   int             `yaml:"version"`
	API       APIConfig       `yaml:"api"`
	Lookup    LookupConfig    `yaml:"lookup"`
	Assistant AssistantConfig `yaml:"assistant"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LookupConfig controls what a medication lookup asks for.
type LookupConfig struct {
	IncludeInteractions bool `yaml:"include_interactions"`
	IncludeSideEffects  bool `yaml:"include_side_effects"`
}

// AssistantConfig holds assistant chat defaults.
type AssistantConfig struct {
	Level string `yaml:"level"` // Basic | Intermediate | Expert
}

// TelemetryConfig controls the anonymous query log.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	UserID       string `yaml:"user_id"`
	MaxPerMinute int    `yaml:"max_per_minute"`
}

// LoggingConfig controls the local event log.
type LoggingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Environment variables that override the file.
const (
	EnvAPIURL    = "MEDSPLAIN_API_URL"
	EnvTimeout   = "MEDSPLAIN_TIMEOUT"
	EnvUserID    = "MEDSPLAIN_USER_ID"
	EnvLevel     = "MEDSPLAIN_LEVEL"
	EnvTelemetry = "MEDSPLAIN_TELEMETRY"
)

const configDir = ".medsplain"
const configFile = "config.yaml"
const envFile = ".env"

// Dir returns the .medsplain directory inside home.
func Dir(home string) string {
	return filepath.Join(home, configDir)
}

// ReadConfig reads .medsplain/config.yaml from the given home directory.
// Keys missing from the file keep their defaults.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to .medsplain/config.yaml in the given directory.
// Creates the .medsplain/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSeconds: 10,
		},
		Lookup: LookupConfig{
			IncludeInteractions: true,
			IncludeSideEffects:  true,
		},
		Assistant: AssistantConfig{
			Level: "Intermediate",
		},
		Telemetry: TelemetryConfig{
			Enabled:      true,
			UserID:       "anon_user123",
			MaxPerMinute: 30,
		},
		Logging: LoggingConfig{
			Enabled: true,
		},
	}
}

// Load reads the config under dir, falling back to defaults when the file
// does not exist, then applies .env files and the process environment.
// The process environment wins over .env files.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	dotenv, err := readDotEnv(filepath.Join(dir, configDir, envFile), envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the variables lookup reports as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTimeout, err)
		}
		c.API.TimeoutSeconds = secs
	}
	if v, ok := lookup(EnvUserID); ok && v != "" {
		c.Telemetry.UserID = v
	}
	if v, ok := lookup(EnvLevel); ok && v != "" {
		c.Assistant.Level = v
	}
	if v, ok := lookup(EnvTelemetry); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTelemetry, err)
		}
		c.Telemetry.Enabled = on
	}
	return nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url must not be empty")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url %q must start with http:// or https://", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive, got %d", c.API.TimeoutSeconds)
	}
	if c.Telemetry.MaxPerMinute < 0 {
		return fmt.Errorf("telemetry.max_per_minute must not be negative, got %d", c.Telemetry.MaxPerMinute)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// readDotEnv merges the given .env files; earlier files win. Missing files
// are skipped.
func readDotEnv(paths ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		vals, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		for k, v := range vals {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged, nil
}
