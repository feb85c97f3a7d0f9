// Package pipeline runs the per-target research workflow: extraction,
// reflection, ad intelligence and optional email generation.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-research/internal/adintel"
	"github.com/sells-group/outreach-research/internal/fetch"
	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/internal/schema"
)

// ProgressEvent is emitted after every state transition.
type ProgressEvent struct {
	TargetID string      `json:"target_id"`
	State    model.State `json:"state"`
	Step     string      `json:"step"`
	Attempts int         `json:"attempts"`
}

// ProgressFunc receives progress events. Calls are serialized.
type ProgressFunc func(ProgressEvent)

// Options are the caller-level settings for one run.
type Options struct {
	RunID         string
	MaxAttempts   int
	GenerateEmail bool
	Sender        *model.SenderConfig
	UserNotes     string
	Progress      ProgressFunc
	// OnResult is called once per target as it finishes. Calls are
	// serialized with Progress.
	OnResult func(model.TargetResult)
}

func (o Options) generationRequested() bool {
	return o.GenerateEmail && o.Sender != nil
}

// Config tunes a Pipeline.
type Config struct {
	MaxConcurrentTargets int
}

// Pipeline researches targets concurrently, one worker per target.
type Pipeline struct {
	cfg       Config
	fetcher   fetch.Fetcher
	extractor Extractor
	ads       *adintel.Stage
	generator Generator
	schema    *schema.Schema
	now       func() time.Time
}

// New creates a Pipeline. A nil ads stage runs without ad library access;
// a nil generator leaves every target without an email.
func New(cfg Config, f fetch.Fetcher, ex Extractor, ads *adintel.Stage, gen Generator, s *schema.Schema) *Pipeline {
	if cfg.MaxConcurrentTargets <= 0 {
		cfg.MaxConcurrentTargets = 4
	}
	if s == nil {
		s = schema.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		fetcher:   f,
		extractor: ex,
		ads:       ads,
		generator: gen,
		schema:    s,
		now:       time.Now,
	}
}

// Run researches every target and returns results keyed by target ID.
// Targets fail independently; cancellation is reported per target with the
// CANCELLED category, so the error is only for unusable configuration.
func (p *Pipeline) Run(ctx context.Context, targets []model.Target, opts Options) (*model.RunResult, error) {
	if p.fetcher == nil || p.extractor == nil {
		return nil, eris.New("pipeline: fetcher and extractor are required")
	}
	if opts.MaxAttempts < 0 {
		return nil, eris.Errorf("pipeline: max attempts must be >= 0, got %d", opts.MaxAttempts)
	}

	log := zap.L().With(zap.String("run_id", opts.RunID))
	unique := dedupTargets(targets)
	log.Info("pipeline: starting run",
		zap.Int("targets", len(unique)),
		zap.Int("max_attempts", opts.MaxAttempts),
		zap.Bool("generate_email", opts.generationRequested()),
	)

	result := &model.RunResult{RunID: opts.RunID, Results: make(map[string]model.TargetResult, len(unique))}

	// One mutex guards the result map and both callbacks.
	var mu sync.Mutex
	emit := func(ev ProgressEvent) {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		opts.Progress(ev)
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrentTargets)
	for _, t := range unique {
		g.Go(func() error {
			tr := p.runTarget(ctx, t, opts, emit)
			mu.Lock()
			defer mu.Unlock()
			result.Results[t.ID()] = tr
			if opts.OnResult != nil {
				opts.OnResult(tr)
			}
			return nil
		})
	}
	_ = g.Wait()

	done, failed := result.Counts()
	log.Info("pipeline: run finished",
		zap.Int("done", done),
		zap.Int("failed", failed),
		zap.Int("unfinished", len(unique)-done-failed),
	)
	return result, nil
}

// dedupTargets keeps the first target for each ID.
func dedupTargets(targets []model.Target) []model.Target {
	seen := make(map[string]bool, len(targets))
	out := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		id := t.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, model.Target{Locator: id})
	}
	return out
}
