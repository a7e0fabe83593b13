package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"APP_PORT", "APP_ENV", "LOG_LEVEL", "DB_PATH", "POLICY_FILE", "INBOX_DIR", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "./data/attendance.db", cfg.Database.Path)
	assert.Empty(t, cfg.Policy.File)
	assert.Empty(t, cfg.Inbox.Dir)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("INBOX_DIR", "/var/spool/attendance")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "/var/spool/attendance", cfg.Inbox.Dir)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("POLICY_FILE=policy.yaml\nAPP_PORT=7000\n"), 0o644))
	// godotenv does not override variables that are already set, even empty
	// ones, so drop the cleared keys it should fill.
	os.Unsetenv("POLICY_FILE")
	os.Unsetenv("APP_PORT")

	cfg, err := Load(envFile)

	require.NoError(t, err)
	assert.Equal(t, "policy.yaml", cfg.Policy.File)
	assert.Equal(t, 7000, cfg.App.Port)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	absent := filepath.Join(t.TempDir(), "absent.env")

	t.Setenv("APP_PORT", "http")
	_, err := Load(absent)
	assert.Error(t, err)

	t.Setenv("APP_PORT", "70000")
	_, err = Load(absent)
	assert.Error(t, err)

	t.Setenv("APP_PORT", "")
	t.Setenv("LOG_LEVEL", "chatty")
	_, err = Load(absent)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)
}
