package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidateFailsWithoutToken(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestDefaultConfigValidatesWithToken(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host.Token = "test-token"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveRates(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host.Token = "test-token"
	cfg.RateLimit.RESTPerSecond = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedComfortThresholds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host.Token = "test-token"
	cfg.Scan.ComfortLow = 600
	cfg.Scan.ComfortHigh = 500
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSaturationBelowComfortHigh(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host.Token = "test-token"
	cfg.Scan.Saturation = 400
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMaxWidthBelowInitialWidth(t *testing.T) {
	cfg := defaultConfig()
	cfg.Host.Token = "test-token"
	cfg.Scan.MaxWidth = cfg.Scan.InitialWidth - 1
	require.Error(t, cfg.Validate())
}

func TestLoadReadsTokenFromEnvironmentOnly(t *testing.T) {
	t.Setenv(TokenEnvVar, "env-token")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Host.Token)
	assert.Equal(t, "https://api.github.com", cfg.Host.APIBaseURL)
}

func TestLoadAppliesPrefixedEnvOverrides(t *testing.T) {
	t.Setenv(TokenEnvVar, "env-token")
	t.Setenv("GHSWEEP_DB_PATH", "/tmp/custom-files.db")
	t.Setenv("GHSWEEP_SCAN_MAX_SIZE", "2097152")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-files.db", cfg.Store.DBPath)
	assert.EqualValues(t, 2097152, cfg.Scan.MaxSize)
}

func TestLoadFailsWithoutToken(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
}
