package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, domain.DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, domain.DefaultRPCListenAddress, cfg.RPCListenAddress)
	require.Equal(t, domain.DefaultAdminListenAddress, cfg.AdminListenAddress)
	require.True(t, cfg.CacheEnabled)
	require.Equal(t, 300, cfg.CacheTTLSeconds)
	require.Equal(t, 30, cfg.RequestTimeoutSeconds)
	require.Equal(t, domain.DefaultBreakerFailureThreshold, cfg.BreakerFailureThreshold)
	require.Equal(t, 60, cfg.BreakerResetSeconds)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DDIGATE_API_KEY", "secret")
	t.Setenv("DDIGATE_BASE_URL", "https://csp.example.test")
	t.Setenv("DDIGATE_CACHE_ENABLED", "false")
	t.Setenv("DDIGATE_BREAKER_FAILURE_THRESHOLD", "7")
	t.Setenv("DDIGATE_LOG_FORMAT", "console")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.APIKey)
	require.Equal(t, "https://csp.example.test", cfg.BaseURL)
	require.False(t, cfg.CacheEnabled)
	require.Equal(t, 7, cfg.BreakerFailureThreshold)
	require.Equal(t, "console", cfg.LogFormat)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFileWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"api_key: from-file\nbreaker_reset_seconds: 120\n",
	), 0o600))

	t.Setenv("DDIGATE_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.APIKey, "environment wins over the file")
	require.Equal(t, 120, cfg.BreakerResetSeconds)
	require.Equal(t, 2*time.Minute, cfg.breakerReset())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DDIGATE_API_KEY")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)
	base.APIKey = "k"
	require.NoError(t, base.Validate())

	bad := base
	bad.LogFormat = "xml"
	require.Error(t, bad.Validate())

	bad = base
	bad.RequestTimeoutSeconds = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.BreakerFailureThreshold = -1
	require.Error(t, bad.Validate())
}

func TestValidateConfig_BuildsClients(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.APIKey = "k"
	require.NoError(t, New(nil).ValidateConfig(cfg))
}
