package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-research/internal/cost"
	"github.com/sells-group/outreach-research/internal/metrics"
	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/pkg/anthropic"
)

// GenerateRequest carries the facts and sender settings for one email.
type GenerateRequest struct {
	Target     model.Target
	Extraction *model.ExtractionRecord
	Ads        *model.AdClassification
	Sender     model.SenderConfig
	UserNotes  string
}

// Generator drafts an outreach email.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*model.GeneratedEmail, error)
}

const generateSystemPrompt = `You are an expert sales professional writing a personalized cold email from company research, including its Meta advertising activity.

Lead with a specific observation from the research, connect it to the sender's service, and close with the requested call to action. Frame advertising observations as professional market analysis.

Respond with a single JSON object:
{"subject_line": "...", "email_body": "...", "key_insights_used": ["..."], "personalization_score": 1-10}`

// ClaudeGenerator drafts emails with one Messages API call.
type ClaudeGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	cost      *cost.Calculator
}

// NewClaudeGenerator creates a ClaudeGenerator.
func NewClaudeGenerator(c anthropic.Client, model string, maxTokens int64) *ClaudeGenerator {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &ClaudeGenerator{client: c, model: model, maxTokens: maxTokens}
}

// WithCost prices every call with calc.
func (g *ClaudeGenerator) WithCost(calc *cost.Calculator) *ClaudeGenerator {
	g.cost = calc
	return g
}

// Generate implements Generator. The model's answer is returned as is.
func (g *ClaudeGenerator) Generate(ctx context.Context, req GenerateRequest) (*model.GeneratedEmail, error) {
	prompt, err := generatePrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    []anthropic.SystemBlock{{Text: generateSystemPrompt, Cached: true}},
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		metrics.LLMRequests.WithLabelValues("generation", "error").Inc()
		return nil, eris.Wrap(err, "pipeline: generation request")
	}
	resp.Usage.Log(g.model, "generation")
	metrics.LLMCostUSD.WithLabelValues("generation").Add(g.cost.Claude(g.model, resp.Usage))

	var email model.GeneratedEmail
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &email); err != nil {
		metrics.LLMRequests.WithLabelValues("generation", "unparsable").Inc()
		zap.L().Warn("pipeline: failed to parse generation json", zap.String("target", req.Target.ID()), zap.Error(err))
		return nil, eris.Wrap(err, "pipeline: parse generation json")
	}
	metrics.LLMRequests.WithLabelValues("generation", "ok").Inc()
	return &email, nil
}

func generatePrompt(req GenerateRequest) (string, error) {
	data := map[string]any{"website": req.Target.ID()}
	if req.Extraction != nil {
		data["company_research"] = req.Extraction.Fields
	}
	if req.Ads != nil {
		data["meta_ad_intelligence"] = adSummary(req.Ads)
	}
	research, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal research data")
	}

	s := req.Sender.WithDefaults()
	notes := strings.TrimSpace(req.UserNotes)
	if notes == "" {
		notes = "No additional notes provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<company_data>\n%s\n</company_data>\n\n", research)
	b.WriteString("<email_config>\n")
	fmt.Fprintf(&b, "Sender Company: %s\n", s.Company)
	fmt.Fprintf(&b, "Sender Name: %s\n", s.Name)
	fmt.Fprintf(&b, "Sender Role: %s\n", s.Role)
	fmt.Fprintf(&b, "Service Offering: %s\n", s.ServiceOffering)
	fmt.Fprintf(&b, "Email Tone: %s\n", s.Tone)
	fmt.Fprintf(&b, "Email Length: %s\n", s.Length)
	fmt.Fprintf(&b, "Call to Action: %s\n", s.CallToAction)
	b.WriteString("</email_config>\n\n")
	fmt.Fprintf(&b, "<user_notes>\n%s\n</user_notes>\n", notes)
	return b.String(), nil
}

// adSummary drops raw candidates, keeping the figures useful in an email.
func adSummary(c *model.AdClassification) map[string]any {
	out := map[string]any{
		"status":  c.Status,
		"message": c.Message,
	}
	if c.Status == model.AdStatusRelevant {
		out["metrics"] = c.Metrics
	}
	if c.Recommendation != "" {
		out["recommendation"] = c.Recommendation
	}
	return out
}
