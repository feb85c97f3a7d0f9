package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-research/internal/fetch"
	"github.com/sells-group/outreach-research/internal/identity"
	"github.com/sells-group/outreach-research/internal/metrics"
	"github.com/sells-group/outreach-research/internal/model"
)

// targetRun is the controller for one target. It is the only writer of st.
type targetRun struct {
	p       *Pipeline
	opts    Options
	emit    func(ProgressEvent)
	log     *zap.Logger
	st      model.WorkflowState
	res     model.TargetResult
	profile model.IdentityProfile
	content *fetch.Content
}

func (p *Pipeline) runTarget(ctx context.Context, t model.Target, opts Options, emit func(ProgressEvent)) model.TargetResult {
	metrics.TargetsActive.Inc()
	defer metrics.TargetsActive.Dec()

	r := &targetRun{
		p:    p,
		opts: opts,
		emit: emit,
		log:  zap.L().With(zap.String("target", t.ID())),
		st:   model.WorkflowState{Target: t, State: model.StateNeedExtraction},
		res:  model.TargetResult{Target: t, State: model.StateNeedExtraction, StartedAt: p.now().UTC()},
	}
	r.loop(ctx)
	return r.finish()
}

func (r *targetRun) loop(ctx context.Context) {
	profile, err := identity.Extract(r.st.Target.Locator)
	if err != nil {
		r.fail(stageErr(model.ErrInvalidLocator, err))
		return
	}
	r.profile = profile

	for !r.st.State.Terminal() {
		if err := ctx.Err(); err != nil {
			r.cancelled(err)
			return
		}

		switch r.st.State {
		case model.StateNeedExtraction:
			rec, err := r.extract(ctx)
			if ctx.Err() != nil {
				r.cancelled(ctx.Err())
				return
			}
			if err != nil {
				r.fail(err)
				return
			}
			r.st.Extraction = rec

		case model.StateNeedAdIntelligence:
			cls := r.classify(ctx)
			if ctx.Err() != nil {
				r.cancelled(ctx.Err())
				return
			}
			r.st.Ads = &cls

		case model.StateNeedGeneration:
			email, err := r.generate(ctx)
			if ctx.Err() != nil {
				r.cancelled(ctx.Err())
				return
			}
			if err != nil {
				r.log.Warn("pipeline: generation failed", zap.Error(err))
				r.res.Error = targetError(err, model.ErrGenerationFailed)
			}
			r.res.Email = email
			r.move(model.StateDone, 0)
			continue

		default:
			r.log.Error("pipeline: unknown state", zap.String("state", string(r.st.State)))
			r.move(model.StateDone, 0)
			continue
		}

		v := Reflect(r.st)
		if r.st.Extraction != nil {
			v.SchemaViolations = r.p.schema.Validate(r.st.Extraction.Fields)
		}
		r.st.Verdict = &v

		tr := Next(TransitionInput{
			Verdict:             v,
			HasExtraction:       r.st.Extraction != nil,
			HasAds:              r.st.Ads != nil,
			Attempts:            r.st.Attempts,
			MaxAttempts:         r.opts.MaxAttempts,
			GenerationRequested: r.opts.generationRequested() && r.p.generator != nil,
		})
		if tr.IncrementAttempts {
			r.st.Attempts++
		}
		r.move(tr.To, tr.Rule)
	}
}

func (r *targetRun) extract(ctx context.Context) (*model.ExtractionRecord, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("extraction").Observe(time.Since(start).Seconds())
	}()

	// Content is fetched once; retries re-extract from the same text.
	if r.content == nil {
		content, err := r.p.fetcher.Fetch(ctx, r.st.Target.Locator)
		if err != nil {
			return nil, stageErr(model.ErrFetchFailed, err)
		}
		r.content = content
	}

	var missing []string
	if r.st.Verdict != nil {
		missing = r.st.Verdict.Missing
	}
	rec, err := r.p.extractor.Extract(ctx, r.p.schema, r.content.Text(), ExtractContext{
		Target:    r.st.Target,
		UserNotes: r.opts.UserNotes,
		Attempt:   r.st.Attempts,
		Missing:   missing,
	})
	if err != nil {
		return nil, stageErr(model.ErrExtractionFailed, err)
	}
	if rec == nil {
		return nil, stageErr(model.ErrExtractionFailed, eris.New("pipeline: extractor returned no record"))
	}
	return rec, nil
}

func (r *targetRun) classify(ctx context.Context) model.AdClassification {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("ad_intelligence").Observe(time.Since(start).Seconds())
	}()
	return r.p.ads.Classify(ctx, r.st.Target, r.profile)
}

func (r *targetRun) generate(ctx context.Context) (*model.GeneratedEmail, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
	}()

	email, err := r.p.generator.Generate(ctx, GenerateRequest{
		Target:     r.st.Target,
		Extraction: r.st.Extraction,
		Ads:        r.st.Ads,
		Sender:     *r.opts.Sender,
		UserNotes:  r.opts.UserNotes,
	})
	if err != nil {
		return nil, stageErr(model.ErrGenerationFailed, err)
	}
	return email, nil
}

func (r *targetRun) move(to model.State, rule int) {
	r.log.Debug("pipeline: transition",
		zap.String("from", string(r.st.State)),
		zap.String("to", string(to)),
		zap.Int("rule", rule),
		zap.Int("attempts", r.st.Attempts),
	)
	r.st.State = to
	r.st.Terminal = to.Terminal()
	r.res.Transitions++
	metrics.Transitions.WithLabelValues(string(to)).Inc()

	step := StepLabel(to, r.st.Attempts)
	if to == model.StateFailed && r.res.Error != nil {
		step += ": " + string(r.res.Error.Category)
	}
	r.emit(ProgressEvent{TargetID: r.st.Target.ID(), State: to, Step: step, Attempts: r.st.Attempts})
}

func (r *targetRun) fail(err error) {
	r.log.Warn("pipeline: target failed", zap.Error(err))
	r.res.Error = targetError(err, model.ErrExtractionFailed)
	r.move(model.StateFailed, 0)
}

// cancelled stops the target without applying the result of the stage that
// was in flight.
func (r *targetRun) cancelled(err error) {
	r.log.Info("pipeline: target cancelled", zap.String("state", string(r.st.State)))
	r.res.Error = &model.TargetError{Category: model.ErrCancelled, Message: err.Error()}
}

func (r *targetRun) finish() model.TargetResult {
	r.res.State = r.st.State
	r.res.Extraction = r.st.Extraction
	r.res.Ads = r.st.Ads
	r.res.Verdict = r.st.Verdict
	r.res.Attempts = r.st.Attempts
	r.res.FinishedAt = r.p.now().UTC()
	if r.st.State.Terminal() {
		metrics.TargetsFinished.WithLabelValues(string(r.st.State)).Inc()
	} else {
		metrics.TargetsFinished.WithLabelValues("cancelled").Inc()
	}
	return r.res
}
