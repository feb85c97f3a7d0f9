// Package adintel finds a target's own ads in the Meta ad library and
// summarises them.
package adintel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-research/internal/metrics"
	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/internal/relevance"
	"github.com/sells-group/outreach-research/internal/resilience"
	"github.com/sells-group/outreach-research/pkg/metaads"
)

const noResultsRecommendation = "Consider other marketing intelligence sources or focus on website-based insights"

// Config controls the ad searches a Stage issues.
type Config struct {
	Countries   []string
	Limit       int
	Language    string
	Parallelism int
}

// Stage runs the variant searches and merges their results.
type Stage struct {
	searcher Searcher
	cfg      Config
	now      func() time.Time
}

// NewStage creates a Stage. A nil searcher means no ad library credential is
// configured and every classification is NO_TOKEN.
func NewStage(s Searcher, cfg Config) *Stage {
	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"DE"}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 5
	}
	return &Stage{searcher: s, cfg: cfg, now: time.Now}
}

type variantResult struct {
	ads []model.AdCandidate
	err error
}

// Classify searches every variant of p and returns the classification. It
// never returns an error; failures are encoded in the status.
func (s *Stage) Classify(ctx context.Context, t model.Target, p model.IdentityProfile) (out model.AdClassification) {
	log := zap.L().With(zap.String("target", t.ID()), zap.String("base_name", p.BaseName))

	if s == nil || s.searcher == nil {
		metrics.AdClassifications.WithLabelValues(string(model.AdStatusNoToken)).Inc()
		return model.AdClassification{
			Status:       model.AdStatusNoToken,
			Message:      "Meta ad library access token not configured; ad intelligence skipped",
			SearchTerms:  p.Variants,
			ClassifiedAt: s.timestamp(),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("adintel: classification panicked", zap.Any("panic", r))
			out = failed(eris.Errorf("adintel: classification panicked: %v", r), p.Variants, s.timestamp())
		}
		metrics.AdClassifications.WithLabelValues(string(out.Status)).Inc()
	}()

	results := s.searchAll(ctx, p.Variants)

	var merged []model.AdCandidate
	var lastErr error
	failures := 0
	for i, r := range results {
		if r.err != nil {
			failures++
			lastErr = r.err
			log.Warn("adintel: variant search failed", zap.String("term", p.Variants[i]), zap.Error(r.err))
			continue
		}
		merged = append(merged, r.ads...)
	}

	if len(results) > 0 && failures == len(results) {
		return failed(lastErr, p.Variants, s.timestamp())
	}

	ads := Merge(merged, p, s.cfg.Language)
	if len(ads) == 0 {
		return model.AdClassification{
			Status:         model.AdStatusNoRelevant,
			Metrics:        model.AdMetrics{Platforms: map[string]int{}, Currency: Currency, Sophistication: sophistication(0), AdvertisingStatus: "not advertising"},
			SearchTerms:    p.Variants,
			Message:        fmt.Sprintf("%s does not appear to run Meta advertising campaigns", displayName(p)),
			Recommendation: noResultsRecommendation,
			ClassifiedAt:   s.timestamp(),
		}
	}

	m := Aggregate(ads)
	log.Info("adintel: relevant ads found", zap.Int("total", m.Total), zap.Int("active", m.Active))
	return model.AdClassification{
		Status:       model.AdStatusRelevant,
		Ads:          ads,
		Metrics:      m,
		SearchTerms:  p.Variants,
		Message:      fmt.Sprintf("Found %d relevant ads for %s (%d active)", m.Total, displayName(p), m.Active),
		ClassifiedAt: s.timestamp(),
	}
}

// searchAll issues one search per variant. Each goroutine owns its slot, so
// results keep variant order regardless of completion order.
func (s *Stage) searchAll(ctx context.Context, variants []string) []variantResult {
	results := make([]variantResult, len(variants))

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	for i, term := range variants {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = variantResult{err: eris.Errorf("adintel: search panicked: %v", r)}
				}
			}()

			start := time.Now()
			ads, err := s.searcher.Search(ctx, SearchRequest{
				Term:      term,
				Countries: s.cfg.Countries,
				Limit:     s.cfg.Limit,
			})
			metrics.StageDuration.WithLabelValues("ad_search").Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.AdSearches.WithLabelValues(string(Failure(err))).Inc()
			} else {
				metrics.AdSearches.WithLabelValues("ok").Inc()
			}
			results[i] = variantResult{ads: ads, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Merge scores candidates, keeps the included ones, drops repeated IDs
// keeping the first, and orders the rest by descending score. Equal scores
// keep search order.
func Merge(cands []model.AdCandidate, p model.IdentityProfile, lang string) []model.ScoredAd {
	seen := make(map[string]bool, len(cands))
	out := make([]model.ScoredAd, 0, len(cands))
	for _, c := range cands {
		v := relevance.Score(c, p, lang)
		if !v.Included {
			continue
		}
		if c.ID != "" {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
		}
		out = append(out, model.ScoredAd{AdCandidate: c, Relevance: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance.Score > out[j].Relevance.Score
	})
	return out
}

// Failure maps a search error to its failure class.
func Failure(err error) model.SearchFailure {
	switch {
	case errors.Is(err, metaads.ErrRateLimited):
		return model.SearchRateLimited
	case errors.Is(err, metaads.ErrAuthFailed):
		return model.SearchAuthFailed
	case errors.Is(err, ErrSearchTimeout):
		return model.SearchTimeout
	case errors.Is(err, metaads.ErrUnavailable), errors.Is(err, resilience.ErrBreakerOpen):
		return model.SearchUnavailable
	default:
		return model.SearchInternal
	}
}

func failed(err error, terms []string, at time.Time) model.AdClassification {
	msg := "ad search failed"
	if err != nil {
		msg = "ad search failed: " + err.Error()
	}
	return model.AdClassification{
		Status:       model.AdStatusSearchFailed,
		Failure:      Failure(err),
		Metrics:      model.AdMetrics{Platforms: map[string]int{}, Currency: Currency},
		SearchTerms:  terms,
		Message:      msg,
		ClassifiedAt: at,
	}
}

func displayName(p model.IdentityProfile) string {
	if p.Domain != "" {
		return p.Domain
	}
	return p.BaseName
}

func (s *Stage) timestamp() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}
