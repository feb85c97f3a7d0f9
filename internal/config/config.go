package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/outreach-research/internal/cost"
	"github.com/sells-group/outreach-research/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     store.Options   `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	MetaAds   MetaAdsConfig   `yaml:"metaads" mapstructure:"metaads"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Pricing   cost.Rates      `yaml:"pricing" mapstructure:"pricing"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	ExtractTokens  int64   `yaml:"extract_max_tokens" mapstructure:"extract_max_tokens"`
	GenerateTokens int64   `yaml:"generate_max_tokens" mapstructure:"generate_max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// FirecrawlConfig holds Firecrawl API settings. An empty key skips
// Firecrawl and fetches through Jina only.
type FirecrawlConfig struct {
	Key          string   `yaml:"key" mapstructure:"key"`
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	CrawlLimit   int      `yaml:"crawl_limit" mapstructure:"crawl_limit"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	PollTimeout  int      `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// MetaAdsConfig configures the ad library searches.
type MetaAdsConfig struct {
	Token             string        `yaml:"token" mapstructure:"token"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	APIVersion        string        `yaml:"api_version" mapstructure:"api_version"`
	Countries         []string      `yaml:"countries" mapstructure:"countries"`
	Limit             int           `yaml:"limit" mapstructure:"limit"`
	Language          string        `yaml:"language" mapstructure:"language"`
	Parallelism       int           `yaml:"parallelism" mapstructure:"parallelism"`
	RateLimitPerHour  int           `yaml:"rate_limit_per_hour" mapstructure:"rate_limit_per_hour"`
	SearchTimeoutSecs int           `yaml:"search_timeout_secs" mapstructure:"search_timeout_secs"`
	Retry             RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker           BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig configures exponential backoff for ad searches.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" mapstructure:"attempts"`
	Min      time.Duration `yaml:"min" mapstructure:"min"`
	Max      time.Duration `yaml:"max" mapstructure:"max"`
}

// BreakerConfig configures the ad search circuit breaker.
type BreakerConfig struct {
	Threshold int           `yaml:"threshold" mapstructure:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// WorkflowConfig configures the research workflow.
type WorkflowConfig struct {
	MaxAttempts          int `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxConcurrentTargets int `yaml:"max_concurrent_targets" mapstructure:"max_concurrent_targets"`
	FetchMaxChars        int `yaml:"fetch_max_chars" mapstructure:"fetch_max_chars"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// legacyEnv maps config keys to the unprefixed variables older deployments
// set. The prefixed OUTREACH_* form still wins when both are present.
var legacyEnv = map[string]string{
	"metaads.token":      "META_API_ACCESS_TOKEN",
	"firecrawl.key":      "FIRECRAWL_API_KEY",
	"jina.key":           "JINA_API_KEY",
	"anthropic.key":      "ANTHROPIC_API_KEY",
	"store.database_url": "DATABASE_URL",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "OUTREACH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_ttl", 7*24*time.Hour)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.extract_max_tokens", 4096)
	v.SetDefault("anthropic.generate_max_tokens", 2048)
	v.SetDefault("anthropic.requests_per_sec", 4)
	v.SetDefault("anthropic.burst", 10)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.crawl_limit", 20)
	v.SetDefault("firecrawl.exclude_paths", []string{"/docs*", "/blog*", "*.jpg", "*.jpeg", "*.png", "*.gif", "*.pdf"})
	v.SetDefault("firecrawl.poll_timeout_secs", 120)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("metaads.base_url", "https://graph.facebook.com")
	v.SetDefault("metaads.api_version", "v18.0")
	v.SetDefault("metaads.countries", []string{"DE"})
	v.SetDefault("metaads.limit", 50)
	v.SetDefault("metaads.language", "de")
	v.SetDefault("metaads.parallelism", 5)
	v.SetDefault("metaads.rate_limit_per_hour", 150)
	v.SetDefault("metaads.search_timeout_secs", 30)
	v.SetDefault("metaads.retry.attempts", 3)
	v.SetDefault("metaads.retry.min", 4*time.Second)
	v.SetDefault("metaads.retry.max", 10*time.Second)
	v.SetDefault("metaads.breaker.threshold", 3)
	v.SetDefault("metaads.breaker.cooldown", 5*time.Minute)
	v.SetDefault("workflow.max_attempts", 2)
	v.SetDefault("workflow.max_concurrent_targets", 4)
	v.SetDefault("workflow.fetch_max_chars", 50000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Workflow.MaxAttempts < 0 {
			errs = append(errs, "workflow.max_attempts must be >= 0")
		}
		if c.Workflow.MaxConcurrentTargets < 1 || c.Workflow.MaxConcurrentTargets > 50 {
			errs = append(errs, "workflow.max_concurrent_targets must be between 1 and 50")
		}
		if c.MetaAds.Limit < 1 {
			errs = append(errs, "metaads.limit must be > 0")
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			errs = append(errs, "store.redis_addr is required")
		}
	default:
		errs = append(errs, "store.driver must be one of sqlite, postgres, redis")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
