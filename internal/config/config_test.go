package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, "rest", cfg.Quotes.Provider)
	assert.Equal(t, 5*time.Second, cfg.Quotes.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "10000.00", cfg.Ledger.InitialCash)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9090
quotes:
  provider: static
  static:
    AAA:
      name: Triple A Corp
      price: "50"
auth:
  token_ttl: 1h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o600))
	t.Setenv("QUOTES_API_KEY", "from-env")
	t.Setenv("LOGGER_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "static", cfg.Quotes.Provider)
	assert.Equal(t, "from-env", cfg.Quotes.ApiKey)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)

	// viper lower-cases map keys
	require.Contains(t, cfg.Quotes.Static, "aaa")
	assert.Equal(t, "Triple A Corp", cfg.Quotes.Static["aaa"].Name)
	assert.Equal(t, "50", cfg.Quotes.Static["aaa"].Price)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_ShippedConfigHasNoSecret(t *testing.T) {
	cfg, err := LoadConfig("../../configs")
	require.NoError(t, err)

	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "rest", cfg.Quotes.Provider)
	assert.Contains(t, cfg.Quotes.Static, "aapl")
}

func TestLoadConfig_RejectsPlaceholderSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("auth:\n  jwt_secret: change-me\n"), 0o600))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "placeholder")

	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "a-real-secret", cfg.Auth.JWTSecret)
}
