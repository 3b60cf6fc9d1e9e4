package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": ":9000"},
		"databases": {"sqlite3": {"dsn": "data/chat.db"}},
		"ai": {"provider": "groq", "providers": {"groq": {"model": "llama-3.1-8b-instant"}}},
		"auth": {"jwt_secret": "file-secret"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NIXBOT_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "debug", cfg.BasicConfig.LogLevel)
	assert.Equal(t, "sqlite3", cfg.BasicConfig.Database)
	assert.Equal(t, DefaultHistoryLimit, cfg.BasicConfig.HistoryLimit)
	assert.Equal(t, 3*time.Second, cfg.BasicConfig.ShutdownTimeout)
	assert.Equal(t, DefaultTokenTTL, cfg.Auth.TokenTTL)
	assert.Equal(t, filepath.Join(dir, "data/chat.db"), cfg.Databases["sqlite3"].DSN)

	groq, ok := cfg.Provider("GROQ")
	require.True(t, ok)
	assert.Equal(t, "gsk-test", groq.APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", groq.Model)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"databases": {"sqlite3": {"dsn": ":memory:"}}}`), 0o600))
	t.Setenv("JWT_SECRET", "")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("AI_PROVIDER", "mock")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddress, cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.False(t, cfg.IsProduction())
}

func TestLoadDurationsFromFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "strings.json")
	body := `{"basic_config": {"shutdown_timeout": "15s"}, "auth": {"jwt_secret": "s", "token_ttl": "24h"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.BasicConfig.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "s", cfg.Auth.JWTSecret)

	path = filepath.Join(dir, "nanos.json")
	body = `{"basic_config": {"shutdown_timeout": 2000000000}, "auth": {"jwt_secret": "s", "token_ttl": 3600000000000}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.BasicConfig.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)

	path = filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"auth": {"jwt_secret": "s", "token_ttl": "a day"}}`), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
