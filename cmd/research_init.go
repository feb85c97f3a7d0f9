package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-research/internal/adintel"
	"github.com/sells-group/outreach-research/internal/config"
	"github.com/sells-group/outreach-research/internal/cost"
	"github.com/sells-group/outreach-research/internal/fetch"
	"github.com/sells-group/outreach-research/internal/pipeline"
	"github.com/sells-group/outreach-research/internal/resilience"
	"github.com/sells-group/outreach-research/internal/schema"
	"github.com/sells-group/outreach-research/internal/store"
	anthropicpkg "github.com/sells-group/outreach-research/pkg/anthropic"
	"github.com/sells-group/outreach-research/pkg/firecrawl"
	"github.com/sells-group/outreach-research/pkg/jina"
	"github.com/sells-group/outreach-research/pkg/metaads"
)

// researchEnv holds the store and pipeline needed by the run command.
type researchEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the research environment.
func (re *researchEnv) Close() {
	if re.Store != nil {
		_ = re.Store.Close()
	}
}

// initResearch validates config, opens the store, builds every API client
// and assembles the Pipeline. Callers should defer env.Close().
func initResearch(ctx context.Context, schemaPath string) (*researchEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	s := schema.Default()
	if schemaPath != "" {
		loaded, err := schema.Load(schemaPath)
		if err != nil {
			return nil, err
		}
		s = loaded
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	ai := anthropicpkg.NewRateLimited(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.RequestsPerSec,
		cfg.Anthropic.Burst,
	)

	calc := cost.NewCalculator(cost.DefaultRates().WithOverrides(cfg.Pricing))

	p := pipeline.New(
		pipeline.Config{MaxConcurrentTargets: cfg.Workflow.MaxConcurrentTargets},
		buildFetcher(cfg),
		pipeline.NewClaudeExtractor(ai, cfg.Anthropic.Model, cfg.Anthropic.ExtractTokens).WithCost(calc),
		buildAdStage(cfg.MetaAds),
		pipeline.NewClaudeGenerator(ai, cfg.Anthropic.Model, cfg.Anthropic.GenerateTokens).WithCost(calc),
		s,
	)

	zap.L().Info("research environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("schema", s.Version),
		zap.Bool("firecrawl", cfg.Firecrawl.Key != ""),
		zap.Bool("metaads", cfg.MetaAds.Token != ""),
	)

	return &researchEnv{Store: st, Pipeline: p}, nil
}

// buildFetcher chains Firecrawl crawl and scrape ahead of the Jina reader.
// Without a Firecrawl key only the reader is used.
func buildFetcher(c *config.Config) fetch.Fetcher {
	var fetchers []fetch.Fetcher
	if c.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		var poll []firecrawl.PollOption
		if c.Firecrawl.PollTimeout > 0 {
			poll = append(poll, firecrawl.WithPollTimeout(time.Duration(c.Firecrawl.PollTimeout)*time.Second))
		}
		fetchers = append(fetchers,
			fetch.NewCrawlFetcher(fc, c.Firecrawl.CrawlLimit, c.Firecrawl.ExcludePaths, poll...),
			fetch.NewScrapeFetcher(fc),
		)
	}
	fetchers = append(fetchers, fetch.NewReaderFetcher(jina.NewClient(c.Jina.Key, jina.WithBaseURL(c.Jina.BaseURL))))
	return fetch.NewChain(c.Workflow.FetchMaxChars, fetchers...)
}

// buildAdStage wires the ad library searcher. The decorators run outermost
// first: timeout, breaker, retry, then the shared hourly window.
func buildAdStage(c config.MetaAdsConfig) *adintel.Stage {
	stageCfg := adintel.Config{
		Countries:   c.Countries,
		Limit:       c.Limit,
		Language:    c.Language,
		Parallelism: c.Parallelism,
	}
	if c.Token == "" {
		zap.L().Warn("metaads: no access token configured, ad intelligence disabled")
		return adintel.NewStage(nil, stageCfg)
	}

	opts := []metaads.Option{metaads.WithAPIVersion(c.APIVersion)}
	if c.BaseURL != "" {
		opts = append(opts, metaads.WithBaseURL(c.BaseURL))
	}
	var s adintel.Searcher = adintel.NewMetaSearcher(metaads.NewClient(c.Token, opts...))

	s = adintel.WithRateLimit(s, resilience.NewSlidingWindow(c.RateLimitPerHour, time.Hour))
	s = adintel.WithRetry(s, resilience.Backoff{
		Attempts:   c.Retry.Attempts,
		Min:        c.Retry.Min,
		Max:        c.Retry.Max,
		Multiplier: 2,
	})
	breaker := resilience.NewBreaker(c.Breaker.Threshold, c.Breaker.Cooldown, func(err error) bool {
		return errors.Is(err, metaads.ErrAuthFailed)
	})
	s = adintel.WithBreaker(s, breaker, metaads.ErrAuthFailed)
	s = adintel.WithTimeout(s, time.Duration(c.SearchTimeoutSecs)*time.Second)

	return adintel.NewStage(s, stageCfg)
}

// openStore opens the configured store for read-only commands.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}
