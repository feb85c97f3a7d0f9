package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// SlidingWindow admits at most Limit calls in any trailing Window. Callers
// over the limit wait for the oldest call to age out.
type SlidingWindow struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	calls []time.Time

	now func() time.Time
}

// NewSlidingWindow creates a limiter; limit <= 0 disables limiting.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Wait blocks until a slot is free or ctx ends.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	if w == nil || w.limit <= 0 {
		return nil
	}
	for {
		wait, ok := w.reserve()
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return eris.Wrap(ctx.Err(), "resilience: rate limit wait")
		case <-t.C:
		}
	}
}

// Allow takes a slot if one is free without waiting.
func (w *SlidingWindow) Allow() bool {
	if w == nil || w.limit <= 0 {
		return true
	}
	_, ok := w.reserve()
	return ok
}

// InUse returns the number of calls counted in the current window.
func (w *SlidingWindow) InUse() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.calls)
}

func (w *SlidingWindow) reserve() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.calls) < w.limit {
		w.calls = append(w.calls, now)
		return 0, true
	}
	wait := w.calls[0].Add(w.window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}
