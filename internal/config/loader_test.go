package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewFileLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Remediation.Concurrency)
	assert.Equal(t, "dp.yaml", cfg.Remediation.PolicyFile)
	assert.Empty(t, cfg.AWS.DefaultProfile)
	assert.Empty(t, cfg.AWS.Regions)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
aws:
  default_profile: security
  default_region: eu-west-1
  regions: [eu-west-1, eu-central-1]
log:
  level: debug
  format: json
remediation:
  concurrency: 4
  policy_file: /etc/dp/dp.yaml
`)

	l := NewFileLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, path, l.ConfigPath())
	assert.Equal(t, "security", cfg.AWS.DefaultProfile)
	assert.Equal(t, "eu-west-1", cfg.AWS.DefaultRegion)
	assert.Equal(t, []string{"eu-west-1", "eu-central-1"}, cfg.AWS.Regions)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Remediation.Concurrency)
	assert.Equal(t, "/etc/dp/dp.yaml", cfg.Remediation.PolicyFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "aws:\n  default_profile: from-file\n")
	t.Setenv("DP_AWS_DEFAULT_PROFILE", "from-env")
	t.Setenv("DP_REMEDIATION_CONCURRENCY", "3")

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AWS.DefaultProfile)
	assert.Equal(t, 3, cfg.Remediation.Concurrency)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "log: [\n")).Load()
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "log:\n  format: xml\n")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.format")
	})

	t.Run("zero concurrency", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "remediation:\n  concurrency: 0\n")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "remediation.concurrency")
	})
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".config", "dp-remediate", "config.yaml"), DefaultConfigPath())
	assert.Equal(t, DefaultConfigPath(), NewFileLoader("").ConfigPath())
}
