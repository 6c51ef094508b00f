package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir moves the test into dir so LoadConfig's relative config.toml /
// .env lookups resolve against a clean temp directory.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func clearOpencatEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENCAT__SERVER__HOST", "OPENCAT__SERVER__PORT", "OPENCAT__SERVER__SECRET_KEY",
		"OPENCAT__DATABASE__URL", "OPENCAT__DATABASE__DRIVER", "OPENCAT__REDIS__URL",
		"OPENCAT__RUN_MODE",
	} {
		// t.Setenv registers the restore; unset after so the var reads as
		// absent during the test body.
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearOpencatEnv(t)
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.ServerHost)
	require.Equal(t, 8080, cfg.ServerPort)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 1, cfg.WebhookPollIntervalSeconds)
	require.Equal(t, 50, cfg.WebhookBatchSize)
	require.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFileDefaultsAndEnvOverride(t *testing.T) {
	clearOpencatEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[server]
host = "127.0.0.1"
port = 9090

[database]
driver = "sqlite"
url = "opencat-dev.db"
`), 0o644))
	chdir(t, dir)

	t.Setenv("OPENCAT__SERVER__PORT", "7070")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Env beats file; file beats the built-in default.
	require.Equal(t, 7070, cfg.ServerPort)
	require.Equal(t, "127.0.0.1", cfg.ServerHost)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "opencat-dev.db", cfg.DatabaseURL)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	clearOpencatEnv(t)
	chdir(t, t.TempDir())

	t.Setenv("OPENCAT__DATABASE__DRIVER", "oracle")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestRunModeSwitchesProduction(t *testing.T) {
	clearOpencatEnv(t)
	chdir(t, t.TempDir())

	t.Setenv("OPENCAT__RUN_MODE", "production")
	t.Setenv("OPENCAT__DATABASE__DRIVER", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.False(t, cfg.IsDevelopment())
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}
