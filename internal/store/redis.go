package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-research/internal/model"
)

const (
	redisRunsIndex = "outreach:runs"
	redisRunPrefix = "outreach:run:"
)

// RedisConfig configures the Redis backend. A zero TTL keeps runs forever.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore implements Store on Redis. Each run is a JSON string, its
// results a hash keyed by target ID, and a sorted set indexes runs by
// creation time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "redis: ping")
	}
	return NewRedisFromClient(client, cfg.TTL), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func runKey(id string) string     { return redisRunPrefix + id }
func resultsKey(id string) string { return redisRunPrefix + id + ":results" }

// Migrate is a no-op; Redis needs no schema.
func (s *RedisStore) Migrate(context.Context) error { return nil }

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) CreateRun(ctx context.Context, targets []model.Target) (*model.Run, error) {
	run := newRun(uuid.New().String(), targets, time.Now().UTC())
	data, err := json.Marshal(run)
	if err != nil {
		return nil, eris.Wrap(err, "redis: marshal run")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runKey(run.ID), data, s.ttl)
		pipe.ZAdd(ctx, redisRunsIndex, redis.Z{Score: float64(run.CreatedAt.UnixNano()), Member: run.ID})
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "redis: create run")
	}
	return run, nil
}

func (s *RedisStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return err
	}
	run.Status = status
	run.Error = errMsg
	run.UpdatedAt = time.Now().UTC()
	return s.saveRun(ctx, run)
}

func (s *RedisStore) SaveTargetResult(ctx context.Context, runID string, result model.TargetResult) error {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "redis: marshal target result")
	}
	if err := s.client.HSet(ctx, resultsKey(runID), result.Target.ID(), data).Err(); err != nil {
		return eris.Wrapf(err, "redis: save result %s/%s", runID, result.Target.ID())
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, resultsKey(runID), s.ttl).Err(); err != nil {
			return eris.Wrap(err, "redis: expire results")
		}
	}
	run.UpdatedAt = time.Now().UTC()
	return s.saveRun(ctx, run)
}

func (s *RedisStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	fields, err := s.client.HGetAll(ctx, resultsKey(runID)).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "redis: load results %s", runID)
	}
	run.Result = &model.RunResult{RunID: run.ID, Results: make(map[string]model.TargetResult, len(fields))}
	for id, raw := range fields {
		var tr model.TargetResult
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			return nil, eris.Wrapf(err, "redis: unmarshal result %s", id)
		}
		run.Result.Results[id] = tr
	}
	return run, nil
}

// ListRuns walks the index newest first. Runs whose key has expired are
// pruned from the index as they are found.
func (s *RedisStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	ids, err := s.client.ZRevRange(ctx, redisRunsIndex, 0, -1).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: list runs")
	}

	var runs []model.Run
	skipped := 0
	for _, id := range ids {
		run, err := s.loadRun(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.client.ZRem(ctx, redisRunsIndex, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		runs = append(runs, *run)
		if len(runs) >= filter.limit() {
			break
		}
	}
	return runs, nil
}

func (s *RedisStore) loadRun(ctx context.Context, runID string) (*model.Run, error) {
	raw, err := s.client.Get(ctx, runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get run %s", runID)
	}
	var run model.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, eris.Wrapf(err, "redis: unmarshal run %s", runID)
	}
	return &run, nil
}

func (s *RedisStore) saveRun(ctx context.Context, run *model.Run) error {
	run.Result = nil
	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "redis: marshal run")
	}
	if err := s.client.Set(ctx, runKey(run.ID), data, s.ttl).Err(); err != nil {
		return eris.Wrapf(err, "redis: save run %s", run.ID)
	}
	return nil
}
