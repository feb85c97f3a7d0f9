package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-research/internal/model"
)

func TestReflect_NoRecord(t *testing.T) {
	v := Reflect(model.WorkflowState{})
	assert.False(t, v.Sufficient)
	assert.False(t, v.HasIdentity)
	assert.False(t, v.HasSubstance)
	assert.False(t, v.HasBreadth)
	assert.Len(t, v.Missing, 3)
}

func TestReflect_Sufficient(t *testing.T) {
	v := Reflect(model.WorkflowState{Extraction: sufficientRecord()})
	assert.True(t, v.Sufficient)
	assert.Empty(t, v.Missing)
	assert.False(t, v.HasAdIntel)
}

func TestReflect_SubstanceAlternatives(t *testing.T) {
	for _, field := range []string{FieldPositioning, FieldMission, FieldChannels} {
		rec := &model.ExtractionRecord{Fields: map[string]any{
			FieldCompanyName: "Acme",
			FieldPresence:    []any{"instagram"},
			field:            []any{map[string]any{"channel_name": "Instagram"}},
		}}
		v := Reflect(model.WorkflowState{Extraction: rec})
		assert.True(t, v.HasSubstance, field)
		assert.True(t, v.Sufficient, field)
	}
}

func TestReflect_Placeholders(t *testing.T) {
	rec := &model.ExtractionRecord{Fields: map[string]any{
		FieldCompanyName: " Unknown ",
		FieldPositioning: "n/a",
		FieldPresence:    map[string]any{"social_media_channels": []any{}},
	}}
	v := Reflect(model.WorkflowState{Extraction: rec})
	assert.False(t, v.HasIdentity)
	assert.False(t, v.HasSubstance)
	assert.False(t, v.HasBreadth)
}

func TestReflect_AdsNeverRequired(t *testing.T) {
	st := model.WorkflowState{Extraction: sufficientRecord()}
	without := Reflect(st)
	st.Ads = &model.AdClassification{Status: model.AdStatusNoRelevant}
	with := Reflect(st)

	assert.True(t, without.Sufficient)
	assert.True(t, with.Sufficient)
	assert.True(t, with.HasAdIntel)
}

func TestReflect_Deterministic(t *testing.T) {
	st := model.WorkflowState{Extraction: record(true, false, true)}
	assert.Equal(t, Reflect(st), Reflect(st))
}
