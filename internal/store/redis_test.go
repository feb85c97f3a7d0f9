package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-research/internal/model"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := NewRedisFromClient(client, ttl)
	t.Cleanup(func() { _ = st.Close() })
	return st, mr
}

func TestRedis_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestRedis(t, 0)
	require.NoError(t, st.Migrate(ctx))

	run, err := st.CreateRun(ctx, []model.Target{{Locator: "acme.de"}})
	require.NoError(t, err)

	require.NoError(t, st.SaveTargetResult(ctx, run.ID, targetResult("acme.de", model.StateDone)))
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusComplete, ""))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, model.StateDone, got.Result.Results["acme.de"].State)
	assert.Equal(t, 2, got.Result.Results["acme.de"].Transitions)
}

func TestRedis_NotFound(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestRedis(t, 0)

	_, err := st.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.SaveTargetResult(ctx, "missing", targetResult("acme.de", model.StateDone)), ErrNotFound)
}

func TestRedis_ListRuns(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestRedis(t, 0)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := st.CreateRun(ctx, nil)
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, st.UpdateRunStatus(ctx, ids[1], model.RunStatusFailed, "boom"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[1], failed[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestRedis_TTLExpiresAndPrunesIndex(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestRedis(t, time.Hour)

	run, err := st.CreateRun(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(runKey(run.ID)))

	mr.FastForward(2 * time.Hour)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	members, err := mr.ZMembers(redisRunsIndex)
	if err == nil {
		assert.Empty(t, members)
	}
}
