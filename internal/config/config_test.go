package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "session.json"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 2*time.Millisecond, cfg.MasterDataWait())
	assert.False(t, cfg.IsProduction())
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://dir.example.org/api\napi_timeout: 5\nlog_level: debug\n"), 0o600))

	t.Setenv("CONSOLE_CONFIG", path)
	t.Setenv("TOKEN_FILE", filepath.Join(dir, "session.json"))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("API_TIMEOUT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://dir.example.org/api", cfg.APIURL)
	assert.Equal(t, 5, cfg.APITimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("CONSOLE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.APIURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.APITimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.UnreadPollInterval = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadFakeAPI(t *testing.T) {
	t.Setenv("FAKEAPI_ADDR", ":9090")
	t.Setenv("FAKEAPI_RATE_LIMIT", "20")
	t.Setenv("FAKEAPI_CORS_ORIGINS", "http://localhost:3000, http://127.0.0.1:3000,")

	cfg := LoadFakeAPI()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.Window())
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFakeAPIDefaults(t *testing.T) {
	cfg := LoadFakeAPI()
	assert.Equal(t, "localhost:8080", cfg.Addr)
	assert.Zero(t, cfg.RateLimit)
	assert.Empty(t, cfg.CORSOrigins)
}
