package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-research/pkg/anthropic"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"sonnet": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		model string
		usage anthropic.TokenUsage
		want  float64
	}{
		{
			name:  "haiku input and output",
			model: "haiku",
			usage: anthropic.TokenUsage{InputTokens: 1000000, OutputTokens: 100000},
			want:  0.80 + 0.40,
		},
		{
			name:  "sonnet with cache write",
			model: "sonnet",
			usage: anthropic.TokenUsage{InputTokens: 1000000, CacheCreationInputTokens: 1000000},
			want:  3.00 + 3.00*1.25,
		},
		{
			name:  "sonnet with cache read",
			model: "sonnet",
			usage: anthropic.TokenUsage{CacheReadInputTokens: 1000000, OutputTokens: 1000000},
			want:  3.00*0.1 + 15.00,
		},
		{
			name:  "unknown model",
			model: "gpt",
			usage: anthropic.TokenUsage{InputTokens: 1000000},
			want:  0,
		},
		{
			name:  "zero usage",
			model: "haiku",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.usage), 0.0001)
		})
	}
}

func TestClaude_NilCalculator(t *testing.T) {
	var calc *Calculator
	assert.Zero(t, calc.Claude("sonnet", anthropic.TokenUsage{InputTokens: 1000}))
}

func TestDefaultRates(t *testing.T) {
	rates := DefaultRates()
	assert.Len(t, rates.Anthropic, 3)

	sonnet := rates.Anthropic["claude-sonnet-4-5-20250929"]
	assert.InDelta(t, 3.00, sonnet.Input, 0.001)
	assert.InDelta(t, 15.00, sonnet.Output, 0.001)
}

func TestWithOverrides(t *testing.T) {
	base := testRates()
	merged := base.WithOverrides(Rates{Anthropic: map[string]ModelRate{
		"sonnet": {Input: 2.00, Output: 10.00},
		"custom": {Input: 1.00},
	}})

	assert.Len(t, merged.Anthropic, 3)
	assert.InDelta(t, 2.00, merged.Anthropic["sonnet"].Input, 0.001)
	assert.InDelta(t, 0.80, merged.Anthropic["haiku"].Input, 0.001)
	// The receiver is left untouched.
	assert.InDelta(t, 3.00, base.Anthropic["sonnet"].Input, 0.001)
}
