package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DP"

var defaults = map[string]any{
	"aws.default_region":      "",
	"aws.default_profile":     "",
	"aws.regions":             []string{},
	"log.level":               "info",
	"log.format":              "console",
	"remediation.concurrency": 1,
	"remediation.policy_file": "dp.yaml",
}

// FileLoader reads Config from a YAML file with environment overrides.
// A missing file is not an error; defaults and environment still apply.
type FileLoader struct {
	path string
}

// NewFileLoader returns a loader for path. An empty path selects
// DefaultConfigPath.
func NewFileLoader(path string) *FileLoader {
	if path == "" {
		path = DefaultConfigPath()
	}
	return &FileLoader{path: path}
}

// DefaultConfigPath returns ~/.config/dp-remediate/config.yaml, or a relative
// config.yaml when the home directory cannot be resolved.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "dp-remediate", "config.yaml")
}

// ConfigPath implements Loader.
func (l *FileLoader) ConfigPath() string {
	return l.path
}

// Load implements Loader.
func (l *FileLoader) Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(l.path); err == nil {
		v.SetConfigFile(l.path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file %s: %w", l.path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: invalid value %q; valid values: console, json", c.Log.Format)
	}
	if c.Remediation.Concurrency < 1 {
		return fmt.Errorf("remediation.concurrency: must be at least 1; got %d", c.Remediation.Concurrency)
	}
	return nil
}
