package model

import (
	"strings"
	"time"
)

// RunStatus represents the current state of a research run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Target is one company website under research.
type Target struct {
	Locator string `json:"locator"`
}

// ID returns the key results are indexed by.
func (t Target) ID() string {
	return strings.TrimSpace(t.Locator)
}

// Run represents a single research run over one or more targets.
type Run struct {
	ID        string     `json:"id"`
	Targets   []Target   `json:"targets"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the per-target outcomes of a run, keyed by Target.ID.
type RunResult struct {
	RunID   string                  `json:"run_id"`
	Results map[string]TargetResult `json:"results"`
}

// Counts tallies terminal states across the run.
func (r *RunResult) Counts() (done, failed int) {
	if r == nil {
		return 0, 0
	}
	for _, tr := range r.Results {
		switch tr.State {
		case StateDone:
			done++
		case StateFailed:
			failed++
		}
	}
	return done, failed
}

// TargetResult is the final outcome for a single target.
type TargetResult struct {
	Target      Target             `json:"target"`
	State       State              `json:"state"`
	Extraction  *ExtractionRecord  `json:"extraction,omitempty"`
	Ads         *AdClassification  `json:"ad_classification,omitempty"`
	Verdict     *ReflectionVerdict `json:"reflection_verdict,omitempty"`
	Email       *GeneratedEmail    `json:"generated_email,omitempty"`
	Attempts    int                `json:"attempts"`
	Transitions int                `json:"transitions"`
	Error       *TargetError       `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// ErrorCategory classifies a per-target failure.
type ErrorCategory string

const (
	ErrFetchFailed      ErrorCategory = "FETCH_FAILED"
	ErrExtractionFailed ErrorCategory = "EXTRACTION_FAILED"
	ErrInvalidLocator   ErrorCategory = "INVALID_LOCATOR"
	ErrGenerationFailed ErrorCategory = "GENERATION_FAILED"
	ErrCancelled        ErrorCategory = "CANCELLED"
)

// TargetError is the error surfaced on a TargetResult.
type TargetError struct {
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}
