package pipeline

import (
	"fmt"

	"github.com/sells-group/outreach-research/internal/model"
)

// TransitionInput is everything the transition function reads.
type TransitionInput struct {
	Verdict             model.ReflectionVerdict
	HasExtraction       bool
	HasAds              bool
	Attempts            int
	MaxAttempts         int
	GenerationRequested bool
}

// Transition is the decision for one step.
type Transition struct {
	To                model.State
	IncrementAttempts bool
	// Rule is the 1-based rule that fired, for logs.
	Rule int
}

// Next picks the state after an extraction or ad intelligence step. The
// first matching rule wins. Leaving NEED_GENERATION is not decided here: it
// always goes to DONE.
func Next(in TransitionInput) Transition {
	v := in.Verdict
	switch {
	case (!in.HasExtraction || !v.HasIdentity || !v.HasSubstance) && in.Attempts < in.MaxAttempts:
		return Transition{To: model.StateNeedExtraction, IncrementAttempts: true, Rule: 1}
	case in.HasExtraction && !in.HasAds:
		return Transition{To: model.StateNeedAdIntelligence, Rule: 2}
	case v.Sufficient && in.HasAds && in.GenerationRequested:
		return Transition{To: model.StateNeedGeneration, Rule: 3}
	case v.Sufficient && !in.GenerationRequested:
		return Transition{To: model.StateDone, Rule: 4}
	case in.Attempts >= in.MaxAttempts && in.HasExtraction && in.GenerationRequested:
		return Transition{To: model.StateNeedGeneration, Rule: 5}
	default:
		return Transition{To: model.StateDone, Rule: 6}
	}
}

// MaxTransitions is the most transitions a target can take with the given
// retry bound: the extractions, one ad intelligence step and one generation.
func MaxTransitions(maxAttempts int) int {
	return max(maxAttempts, 0) + 3
}

// StepLabel is the human-readable progress label for entering state.
func StepLabel(state model.State, attempts int) string {
	switch state {
	case model.StateNeedExtraction:
		if attempts > 0 {
			return fmt.Sprintf("Re-extracting company information (retry %d)", attempts)
		}
		return "Extracting company information"
	case model.StateNeedAdIntelligence:
		return "Searching Meta ad library"
	case model.StateNeedGeneration:
		return "Generating outreach email"
	case model.StateDone:
		return "Research complete"
	case model.StateFailed:
		return "Research failed"
	default:
		return string(state)
	}
}
