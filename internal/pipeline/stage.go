package pipeline

import (
	"errors"
	"strings"

	"github.com/sells-group/outreach-research/internal/model"
)

// StageError is the only error a stage hands back to the controller. It
// carries the category reported on the target's result.
type StageError struct {
	Category model.ErrorCategory
	Err      error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return string(e.Category) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(cat model.ErrorCategory, err error) error {
	return &StageError{Category: cat, Err: err}
}

// targetError converts err into the error reported on a TargetResult.
// Errors that are not StageErrors fall back to fallback.
func targetError(err error, fallback model.ErrorCategory) *model.TargetError {
	if err == nil {
		return nil
	}
	cat := fallback
	var se *StageError
	if errors.As(err, &se) {
		cat = se.Category
	}
	return &model.TargetError{Category: cat, Message: err.Error()}
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
