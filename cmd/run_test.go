//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-research/internal/model"
)

func sampleResult() *model.RunResult {
	return &model.RunResult{
		RunID: "run-1",
		Results: map[string]model.TargetResult{
			"beta.de": {
				Target: model.Target{Locator: "beta.de"},
				State:  model.StateFailed,
				Error:  &model.TargetError{Category: model.ErrFetchFailed, Message: "all fetchers failed"},
			},
			"acme.de": {
				Target:      model.Target{Locator: "acme.de"},
				State:       model.StateDone,
				Transitions: 3,
				Ads:         &model.AdClassification{Status: model.AdStatusRelevant, Metrics: model.AdMetrics{Total: 4, Active: 2}},
				Email: &model.GeneratedEmail{
					Subject:              "Your Instagram ads",
					Body:                 "Hi Acme,",
					KeyInsights:          []string{"4 ads"},
					PersonalizationScore: 8,
				},
			},
		},
	}
}

func TestWriteRunResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRunResult(&buf, sampleResult()))

	var decoded model.RunResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Results, 2)
	assert.Equal(t, "Your Instagram ads", decoded.Results["acme.de"].Email.Subject)
}

func TestWriteRunText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRunText(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "== acme.de [DONE] attempts=0 transitions=3")
	assert.Contains(t, out, "ads: RELEVANT_RESULTS_FOUND (4 total, 2 active)")
	assert.Contains(t, out, "Subject: Your Instagram ads")
	assert.Contains(t, out, "error: FETCH_FAILED: all fetchers failed")
	// Targets are sorted by ID.
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("acme.de")), bytes.Index(buf.Bytes(), []byte("beta.de")))
}

func TestRunOutcome(t *testing.T) {
	status, msg := runOutcome(context.Background(), nil)
	assert.Equal(t, model.RunStatusComplete, status)
	assert.Empty(t, msg)

	status, msg = runOutcome(context.Background(), errors.New("bad options"))
	assert.Equal(t, model.RunStatusFailed, status)
	assert.Equal(t, "bad options", msg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status, msg = runOutcome(ctx, nil)
	assert.Equal(t, model.RunStatusFailed, status)
	assert.Equal(t, "cancelled", msg)
}
