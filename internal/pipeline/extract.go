package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-research/internal/cost"
	"github.com/sells-group/outreach-research/internal/metrics"
	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/internal/schema"
	"github.com/sells-group/outreach-research/pkg/anthropic"
)

// ErrUnparsable is returned when the model's answer holds no JSON object.
var ErrUnparsable = eris.New("pipeline: extraction output is not a JSON object")

// ExtractContext is the per-call context passed alongside the page text.
type ExtractContext struct {
	Target    model.Target
	UserNotes string
	// Attempt is zero for the first extraction and counts retries after it.
	Attempt int
	// Missing lists the facts the previous attempt lacked.
	Missing []string
}

// Extractor turns page text into a record conforming to a schema.
type Extractor interface {
	Extract(ctx context.Context, s *schema.Schema, text string, ec ExtractContext) (*model.ExtractionRecord, error)
}

const extractSystemPrompt = `You are a marketing research analyst. You read the scraped website content of one company and fill in a structured profile of it.

Respond with a single JSON object whose keys are the properties of the schema below. Use only facts supported by the content. When the content does not cover a field, omit it rather than writing placeholders such as "unknown".

Schema:
<schema>
%s
</schema>`

// ClaudeExtractor extracts records with one Messages API call per attempt.
type ClaudeExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	cost      *cost.Calculator
	now       func() time.Time
}

// NewClaudeExtractor creates a ClaudeExtractor.
func NewClaudeExtractor(c anthropic.Client, model string, maxTokens int64) *ClaudeExtractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ClaudeExtractor{client: c, model: model, maxTokens: maxTokens, now: time.Now}
}

// WithCost prices every call with calc.
func (e *ClaudeExtractor) WithCost(calc *cost.Calculator) *ClaudeExtractor {
	e.cost = calc
	return e
}

// Extract implements Extractor.
func (e *ClaudeExtractor) Extract(ctx context.Context, s *schema.Schema, text string, ec ExtractContext) (*model.ExtractionRecord, error) {
	log := zap.L().With(zap.String("target", ec.Target.ID()), zap.Int("attempt", ec.Attempt))

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    []anthropic.SystemBlock{{Text: fmt.Sprintf(extractSystemPrompt, s.JSON()), Cached: true}},
		Messages:  []anthropic.Message{{Role: "user", Content: extractUserPrompt(text, ec)}},
	})
	if err != nil {
		metrics.LLMRequests.WithLabelValues("extraction", "error").Inc()
		return nil, eris.Wrap(err, "pipeline: extraction request")
	}
	resp.Usage.Log(e.model, "extraction")
	metrics.LLMCostUSD.WithLabelValues("extraction").Add(e.cost.Claude(e.model, resp.Usage))

	fields, err := parseFields(resp.Text())
	if err != nil {
		metrics.LLMRequests.WithLabelValues("extraction", "unparsable").Inc()
		log.Warn("pipeline: failed to parse extraction json", zap.Error(err))
		return nil, err
	}
	metrics.LLMRequests.WithLabelValues("extraction", "ok").Inc()

	return &model.ExtractionRecord{
		SchemaVersion: s.Version,
		Fields:        fields,
		ExtractedAt:   e.now().UTC(),
	}, nil
}

func extractUserPrompt(text string, ec ExtractContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company website: %s\n\n", ec.Target.ID())
	b.WriteString("<website_contents>\n")
	b.WriteString(text)
	b.WriteString("\n</website_contents>\n")
	if notes := strings.TrimSpace(ec.UserNotes); notes != "" {
		fmt.Fprintf(&b, "\n<user_notes>\n%s\n</user_notes>\n", notes)
	}
	if ec.Attempt > 0 && len(ec.Missing) > 0 {
		fmt.Fprintf(&b, "\nA previous pass could not establish: %s. Look for these specifically.\n", strings.Join(ec.Missing, ", "))
	}
	return b.String()
}

func parseFields(text string) (map[string]any, error) {
	cleaned := cleanJSON(text)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, ErrUnparsable
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, eris.Wrap(ErrUnparsable, err.Error())
	}
	return fields, nil
}
