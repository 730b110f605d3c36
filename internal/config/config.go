package config

// Config is the top-level application configuration.
// It is loaded from ~/.config/dp-remediate/config.yaml; every key can be
// overridden by a DP_-prefixed environment variable (aws.default_profile →
// DP_AWS_DEFAULT_PROFILE). Command-line flags take precedence over both.
type Config struct {
	AWS         AWSConfig         `mapstructure:"aws"         yaml:"aws"         json:"aws"`
	Log         LogConfig         `mapstructure:"log"         yaml:"log"         json:"log"`
	Remediation RemediationConfig `mapstructure:"remediation" yaml:"remediation" json:"remediation"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultRegion is used when the loaded profile has no region.
	DefaultRegion string `mapstructure:"default_region" yaml:"default_region" json:"default_region"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `mapstructure:"default_profile" yaml:"default_profile" json:"default_profile"`

	// Regions lists the regions for regional pipelines (rds, ssm) when no
	// --region flag is provided. Empty means the profile's home region.
	Regions []string `mapstructure:"regions" yaml:"regions" json:"regions"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level" json:"level"`

	// Format is "console" (human-readable) or "json".
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// RemediationConfig holds defaults for remediation runs.
type RemediationConfig struct {
	// Concurrency is the number of resources processed at once per
	// pipeline. 1 keeps processing strictly sequential.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`

	// PolicyFile is the path of the dp.yaml remediation policy.
	PolicyFile string `mapstructure:"policy_file" yaml:"policy_file" json:"policy_file"`
}

// Loader is the interface for reading Config from disk.
type Loader interface {
	// Load reads, parses, and validates the configuration file.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}
