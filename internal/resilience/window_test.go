package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSlidingWindow_AdmitsUpToLimit(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := NewSlidingWindow(3, time.Hour)
	w.now = clock.Now

	assert.True(t, w.Allow())
	assert.True(t, w.Allow())
	assert.True(t, w.Allow())
	assert.False(t, w.Allow())
	assert.Equal(t, 3, w.InUse())

	clock.Advance(time.Hour + time.Second)
	assert.Equal(t, 0, w.InUse())
	assert.True(t, w.Allow())
}

func TestSlidingWindow_SlotsAgeOutIndividually(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := NewSlidingWindow(2, time.Minute)
	w.now = clock.Now

	require.True(t, w.Allow())
	clock.Advance(30 * time.Second)
	require.True(t, w.Allow())
	assert.False(t, w.Allow())

	clock.Advance(31 * time.Second)
	assert.True(t, w.Allow())
	assert.False(t, w.Allow())
}

func TestSlidingWindow_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	w := NewSlidingWindow(1, time.Hour)
	require.NoError(t, w.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlidingWindow_WaitDelaysUntilSlotFrees(t *testing.T) {
	t.Parallel()

	w := NewSlidingWindow(1, 30*time.Millisecond)
	require.NoError(t, w.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, w.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSlidingWindow_Disabled(t *testing.T) {
	t.Parallel()

	var nilWindow *SlidingWindow
	assert.NoError(t, nilWindow.Wait(context.Background()))
	assert.True(t, nilWindow.Allow())

	w := NewSlidingWindow(0, time.Hour)
	for range 10 {
		assert.True(t, w.Allow())
	}
}
