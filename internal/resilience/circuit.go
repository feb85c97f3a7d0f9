package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned while the breaker rejects calls.
var ErrBreakerOpen = eris.New("resilience: circuit open")

// Breaker stops calling a service after Threshold consecutive tripping
// failures, then lets one probe through once Cooldown has passed.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	trips     func(error) bool

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a Breaker. A nil trips counts every error.
func NewBreaker(threshold int, cooldown time.Duration, trips func(error) bool) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if trips == nil {
		trips = func(err error) bool { return err != nil }
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		trips:     trips,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. The first call after the
// cooldown moves the breaker to half-open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
	}
	return nil
}

// Record feeds a call result back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.trips(err) {
		b.failures = 0
		b.state = BreakerClosed
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
