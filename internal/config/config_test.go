package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "outreach.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.Store.RedisTTL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, int64(4096), cfg.Anthropic.ExtractTokens)
	assert.InDelta(t, 4.0, cfg.Anthropic.RequestsPerSec, 0.001)
	assert.Equal(t, 20, cfg.Firecrawl.CrawlLimit)
	assert.Contains(t, cfg.Firecrawl.ExcludePaths, "/blog*")
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "v18.0", cfg.MetaAds.APIVersion)
	assert.Equal(t, []string{"DE"}, cfg.MetaAds.Countries)
	assert.Equal(t, 50, cfg.MetaAds.Limit)
	assert.Equal(t, "de", cfg.MetaAds.Language)
	assert.Equal(t, 150, cfg.MetaAds.RateLimitPerHour)
	assert.Equal(t, 3, cfg.MetaAds.Retry.Attempts)
	assert.Equal(t, 4*time.Second, cfg.MetaAds.Retry.Min)
	assert.Equal(t, 5*time.Minute, cfg.MetaAds.Breaker.Cooldown)
	assert.Equal(t, 2, cfg.Workflow.MaxAttempts)
	assert.Equal(t, 4, cfg.Workflow.MaxConcurrentTargets)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: redis
  redis_ttl: 24h
log:
  level: debug
  format: console
metaads:
  countries: [DE, AT]
  retry:
    min: 1s
workflow:
  max_attempts: 4
metrics:
  addr: ":9100"
pricing:
  anthropic:
    claude-custom:
      input: 2.5
      output: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.RedisTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"DE", "AT"}, cfg.MetaAds.Countries)
	assert.Equal(t, time.Second, cfg.MetaAds.Retry.Min)
	assert.Equal(t, 4, cfg.Workflow.MaxAttempts)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.InDelta(t, 2.5, cfg.Pricing.Anthropic["claude-custom"].Input, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 10*time.Second, cfg.MetaAds.Retry.Max)
	assert.Equal(t, 50, cfg.MetaAds.Limit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("OUTREACH_STORE_DRIVER", "postgres")
	t.Setenv("OUTREACH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("META_API_ACCESS_TOKEN", "meta-token")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-legacy")
	t.Setenv("OUTREACH_ANTHROPIC_KEY", "sk-ant-prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "meta-token", cfg.MetaAds.Token)
	assert.Equal(t, "sk-ant-prefixed", cfg.Anthropic.Key)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "outreach.db"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.MetaAds.Limit = 50
	cfg.Workflow.MaxAttempts = 2
	cfg.Workflow.MaxConcurrentTargets = 4
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateRun_Bounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Workflow.MaxConcurrentTargets = 0
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_targets must be between 1 and 50")

	cfg.Workflow.MaxConcurrentTargets = 51
	assert.Error(t, cfg.Validate("run"))

	cfg.Workflow.MaxConcurrentTargets = 50
	cfg.Workflow.MaxAttempts = -1
	err = cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")

	cfg.Workflow.MaxAttempts = 0
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRuns_NoAnthropicNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	assert.NoError(t, cfg.Validate("runs"))
}

func TestValidateStoreDrivers(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "redis"
	err := cfg.Validate("runs")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.redis_addr is required")

	cfg.Store.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate("runs"))

	cfg.Store.Driver = "mongo"
	err = cfg.Validate("runs")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be one of")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
