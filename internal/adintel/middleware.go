package adintel

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/internal/resilience"
	"github.com/sells-group/outreach-research/pkg/metaads"
)

// WithRateLimit delays every search until the shared window has a free slot.
func WithRateLimit(next Searcher, w *resilience.SlidingWindow) Searcher {
	return SearcherFunc(func(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
		if err := w.Wait(ctx); err != nil {
			return nil, err
		}
		return next.Search(ctx, req)
	})
}

// WithRetry retries throttled and unavailable searches with backoff.
func WithRetry(next Searcher, b resilience.Backoff) Searcher {
	if b.Retryable == nil {
		b.Retryable = func(err error) bool {
			return errors.Is(err, metaads.ErrRateLimited) || errors.Is(err, metaads.ErrUnavailable)
		}
	}
	if b.OnRetry == nil {
		b.OnRetry = resilience.LogRetry("metaads", "search")
	}
	return SearcherFunc(func(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
		return resilience.Retry(ctx, b, func(ctx context.Context) ([]model.AdCandidate, error) {
			return next.Search(ctx, req)
		})
	})
}

// WithBreaker short-circuits searches while br is open. Rejected calls fail
// with rejected, or resilience.ErrBreakerOpen when rejected is nil.
func WithBreaker(next Searcher, br *resilience.Breaker, rejected error) Searcher {
	return SearcherFunc(func(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
		if err := br.Allow(); err != nil {
			if rejected != nil {
				return nil, eris.Wrap(rejected, err.Error())
			}
			return nil, err
		}
		ads, err := next.Search(ctx, req)
		if ctx.Err() == nil {
			br.Record(err)
		}
		return ads, err
	})
}

// WithTimeout bounds each search. A search that outlives d fails with
// ErrSearchTimeout; cancellation of the parent ctx is passed through.
func WithTimeout(next Searcher, d time.Duration) Searcher {
	if d <= 0 {
		return next
	}
	return SearcherFunc(func(ctx context.Context, req SearchRequest) ([]model.AdCandidate, error) {
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		ads, err := next.Search(tctx, req)
		if err != nil && ctx.Err() == nil && tctx.Err() != nil {
			return nil, eris.Wrapf(ErrSearchTimeout, "term %q after %s", req.Term, d)
		}
		return ads, err
	})
}
