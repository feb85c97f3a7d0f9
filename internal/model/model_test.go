package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  bool
	}{
		{StateNeedExtraction, false},
		{StateNeedAdIntelligence, false},
		{StateNeedGeneration, false},
		{StateDone, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.state.Terminal())
		})
	}
}

func TestNonEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"blank", "   ", false},
		{"placeholder", "Unknown", false},
		{"na", "N/A", false},
		{"text", "Acme GmbH", true},
		{"empty array", []any{}, false},
		{"array of blanks", []any{"", "none"}, false},
		{"array", []any{"instagram"}, true},
		{"empty object", map[string]any{}, false},
		{"object of blanks", map[string]any{"a": "", "b": []any{}}, false},
		{"nested object", map[string]any{"a": map[string]any{"b": "x"}}, true},
		{"number", float64(3), true},
		{"bool", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NonEmpty(tt.v))
		})
	}
}

func TestExtractionRecordHelpers(t *testing.T) {
	t.Parallel()

	var nilRec *ExtractionRecord
	assert.False(t, nilRec.Has("company_name"))
	assert.Empty(t, nilRec.String("company_name"))

	rec := &ExtractionRecord{Fields: map[string]any{
		"company_name": "  Acme  ",
		"employees":    float64(12),
	}}
	assert.True(t, rec.Has("company_name"))
	assert.False(t, rec.Has("missing"))
	assert.Equal(t, "Acme", rec.String("company_name"))
	assert.Equal(t, "12", rec.String("employees"))
}

func TestAdCandidateActive(t *testing.T) {
	t.Parallel()

	stop := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.True(t, AdCandidate{ID: "a"}.Active())
	assert.False(t, AdCandidate{ID: "b", DeliveryStop: &stop}.Active())
	assert.InDelta(t, 1500.0, ImpressionRange{Lower: 1000, Upper: 2000}.Midpoint(), 0.001)
}

func TestImpressionRangeMidpoint_OpenEnded(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1000000.0, ImpressionRange{Lower: 1000000}.Midpoint(), 0.001)
	assert.InDelta(t, 500.0, ImpressionRange{Lower: 500, Upper: 100}.Midpoint(), 0.001)
	assert.InDelta(t, 0.0, ImpressionRange{}.Midpoint(), 0.001)
}

func TestRunResultCounts(t *testing.T) {
	t.Parallel()

	var nilRes *RunResult
	done, failed := nilRes.Counts()
	assert.Zero(t, done)
	assert.Zero(t, failed)

	res := &RunResult{Results: map[string]TargetResult{
		"a": {State: StateDone},
		"b": {State: StateFailed},
		"c": {State: StateDone},
		"d": {State: StateNeedExtraction},
	}}
	done, failed = res.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
}

func TestSenderConfigWithDefaults(t *testing.T) {
	t.Parallel()

	s := SenderConfig{Company: "Sells", Tone: "casual"}.WithDefaults()
	assert.Equal(t, "casual", s.Tone)
	assert.Equal(t, "medium", s.Length)
	assert.NotEmpty(t, s.CallToAction)
}

func TestGeneratedEmailRender(t *testing.T) {
	t.Parallel()

	var nilEmail *GeneratedEmail
	assert.Empty(t, nilEmail.Render())

	e := &GeneratedEmail{
		Subject:              "Your Instagram campaigns",
		Body:                 "Hi team,\nGreat work.",
		KeyInsights:          []string{"runs 12 active ads", "targets young parents"},
		PersonalizationScore: 8,
	}
	out := e.Render()
	assert.Contains(t, out, "Subject: Your Instagram campaigns\n\nHi team,")
	assert.Contains(t, out, "Research Insights Used:\n• runs 12 active ads\n• targets young parents\n")
	assert.Contains(t, out, "Personalization Score: 8/10")
}
