package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/pkg/anthropic"
)

func TestClaudeGenerator_ReturnsVerbatim(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		p := req.Messages[0].Content
		return strings.Contains(p, "Sender Company: Reach GmbH") &&
			strings.Contains(p, "Email Tone: professional") &&
			strings.Contains(p, "Call to Action: Schedule a brief call") &&
			strings.Contains(p, "RELEVANT_RESULTS_FOUND") &&
			strings.Contains(p, "Open around the clock") &&
			strings.Contains(p, "No additional notes provided")
	})).Return(textResponse(`{"subject_line":"Your Instagram ads","email_body":"Hi Acme,","key_insights_used":["3 active ads"],"personalization_score":12}`), nil)

	email, err := NewClaudeGenerator(ai, "m", 0).Generate(context.Background(), GenerateRequest{
		Target:     model.Target{Locator: "acme.de"},
		Extraction: sufficientRecord(),
		Ads:        &model.AdClassification{Status: model.AdStatusRelevant, Metrics: model.AdMetrics{Total: 3, Active: 3}},
		Sender:     *sender(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Your Instagram ads", email.Subject)
	assert.Equal(t, []string{"3 active ads"}, email.KeyInsights)
	assert.Equal(t, 12, email.PersonalizationScore)
	ai.AssertExpectations(t)
}

func TestClaudeGenerator_Errors(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable")).Once()
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("sorry"), nil).Once()

	g := NewClaudeGenerator(ai, "m", 0)
	_, err := g.Generate(context.Background(), GenerateRequest{Sender: *sender()})
	assert.Error(t, err)
	_, err = g.Generate(context.Background(), GenerateRequest{Sender: *sender()})
	assert.Error(t, err)
}

func TestAdSummary(t *testing.T) {
	s := adSummary(&model.AdClassification{Status: model.AdStatusNoRelevant, Message: "none", Recommendation: "try SEO"})
	assert.Equal(t, "try SEO", s["recommendation"])
	assert.NotContains(t, s, "metrics")
}
