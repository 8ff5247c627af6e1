package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/beautifulqr/qrgen/pkg/logger"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"QRGEN_ADSENSE_CLIENT", "NEXT_PUBLIC_ADSENSE_CLIENT", "ADSENSE_CLIENT",
		"QRGEN_SERVER_PORT", "PORT", "QRGEN_CACHE_TYPE", "QRGEN_RENDER_BACKEND",
		"QRGEN_LOG_FORMAT", "QRGEN_CACHE_TTL", "QRGEN_REDIS_ADDR", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Ads.Client, "ads must be disabled by default")
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
}

func TestLoadConfigWithoutFile(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigExplicitMissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFromYAML(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
ads:
  client: ca-pub-123
render:
  backend: skip2
cache:
  type: none
  ttl: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep their defaults")
	assert.Equal(t, "ca-pub-123", cfg.Ads.Client)
	assert.Equal(t, "1234567890", cfg.Ads.Slot)
	assert.Equal(t, "skip2", cfg.Render.Backend)
	assert.Equal(t, "none", cfg.Cache.Type)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoadConfigFromJSON(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"site":{"contact_email":"ops@example.org"}}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.org", cfg.Site.ContactEmail)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))

	t.Setenv("QRGEN_SERVER_PORT", "9090")
	t.Setenv("NEXT_PUBLIC_ADSENSE_CLIENT", "ca-pub-999")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ca-pub-999", cfg.Ads.Client)
}

func TestApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	isolateEnv(t)
	t.Setenv("QRGEN_SERVER_PORT", "not-a-number")
	t.Setenv("QRGEN_CACHE_TTL", "soon")

	cfg := DefaultConfig()
	changed := applyEnvOverrides(cfg)

	assert.False(t, changed)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"backend", func(c *Config) { c.Render.Backend = "zxing" }},
		{"cache type", func(c *Config) { c.Cache.Type = "memcached" }},
		{"redis addr", func(c *Config) { c.Cache.Type = "redis"; c.Cache.Redis.Addr = " " }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvFileWarnsOnMalformedFile(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Use(zap.New(core))
	t.Cleanup(func() { logger.Use(zap.NewNop()) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=1\n"), 0o644))
	t.Setenv("QRGEN_TEST_GOOD", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("QRGEN_TEST_GOOD=yes\n"), 0o644))
	require.NoError(t, os.Unsetenv("QRGEN_TEST_GOOD"))

	loadEnvFile(dir)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "config", entry.ContextMap()["component"])
	assert.Equal(t, filepath.Join(dir, ".env"), entry.ContextMap()["path"])
	assert.Equal(t, "yes", os.Getenv("QRGEN_TEST_GOOD"))
}
