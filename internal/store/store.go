// Package store persists research runs and their per-target results. The
// workflow itself never reads from a store; the CLI records runs so they can
// be listed and inspected later.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-research/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for research runs.
type Store interface {
	CreateRun(ctx context.Context, targets []model.Target) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	SaveTargetResult(ctx context.Context, runID string, result model.TargetResult) error
	// GetRun returns the run with every saved target result.
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns runs newest first, without target results.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver        string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string        `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl" mapstructure:"redis_ttl"`
	MaxConns      int32         `yaml:"max_conns" mapstructure:"max_conns"`
}

// Open creates the configured backend and runs its migrations.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		st  Store
		err error
	)
	switch opts.Driver {
	case "", "sqlite":
		dsn := opts.DatabaseURL
		if dsn == "" {
			dsn = "outreach.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, opts.DatabaseURL, &PoolConfig{MaxConns: opts.MaxConns})
	case "redis":
		st, err = NewRedis(ctx, RedisConfig{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			TTL:      opts.RedisTTL,
		})
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newRun(id string, targets []model.Target, now time.Time) *model.Run {
	return &model.Run{
		ID:        id,
		Targets:   targets,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
