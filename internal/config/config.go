package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultServiceURL     = "http://localhost:5050"
	DefaultFixConcurrency = 4
	DefaultTimeoutSeconds = 30
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"

	envPrefix = "MIGREVIEW"
	dirName   = ".migreview"
)

// Config represents the flat migreview configuration
type Config struct {
	ServiceURL     string `json:"service_url" mapstructure:"service_url"`                   // base URL of the migration service
	DBPath         string `json:"db_path,omitempty" mapstructure:"db_path"`                 // local draft database; default ~/.migreview/migreview.db
	FixConcurrency int    `json:"fix_concurrency,omitempty" mapstructure:"fix_concurrency"` // parallel fix_sequence requests
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"` // per request
	LogLevel       string `json:"log_level,omitempty" mapstructure:"log_level"`             // logrus level name
	LogFormat      string `json:"log_format,omitempty" mapstructure:"log_format"`           // "text" or "json"
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads .migreview/config.json from dir, layered under
// MIGREVIEW_* environment variables and over built-in defaults.
// A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	v.SetDefault("service_url", DefaultServiceURL)
	v.SetDefault("db_path", "")
	v.SetDefault("fix_concurrency", DefaultFixConcurrency)
	v.SetDefault("timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	path := filepath.Join(dir, dirName, "config.json")
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.FixConcurrency < 1 {
		cfg.FixConcurrency = 1
	}
	if cfg.TimeoutSeconds < 1 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.DBPath == "" {
		path, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = path
	}

	return &cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, dirName)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", dirName, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(cfgDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultDBPath returns ~/.migreview/migreview.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName, "migreview.db"), nil
}
