package model

// State is a workflow controller state.
type State string

const (
	StateNeedExtraction     State = "NEED_EXTRACTION"
	StateNeedAdIntelligence State = "NEED_AD_INTELLIGENCE"
	StateNeedGeneration     State = "NEED_GENERATION"
	StateDone               State = "DONE"
	StateFailed             State = "FAILED"
)

// Terminal reports whether no further transitions happen from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ReflectionVerdict records which required facts an extraction carries.
type ReflectionVerdict struct {
	Sufficient       bool     `json:"sufficient"`
	HasIdentity      bool     `json:"has_identity"`
	HasSubstance     bool     `json:"has_substance"`
	HasBreadth       bool     `json:"has_breadth"`
	HasAdIntel       bool     `json:"has_ad_intelligence"`
	Missing          []string `json:"missing,omitempty"`
	SchemaViolations []string `json:"schema_violations,omitempty"`
}

// WorkflowState is the per-target state owned by the controller.
type WorkflowState struct {
	Target     Target
	State      State
	Extraction *ExtractionRecord
	Ads        *AdClassification
	Verdict    *ReflectionVerdict
	Attempts   int
	Terminal   bool
}
