package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

type limitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimited paces CreateMessage calls through a token bucket shared by
// every caller of the returned Client.
func NewRateLimited(next Client, rps float64, burst int) Client {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = max(int(rps), 1)
	}
	return &limitedClient{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (c *limitedClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropic: rate limit wait")
	}
	return c.next.CreateMessage(ctx, req)
}
