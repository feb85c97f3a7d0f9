package pipeline

import "github.com/sells-group/outreach-research/internal/model"

// Record fields the sufficiency policy reads.
const (
	FieldCompanyName = "company_name"
	FieldPositioning = "unique_selling_proposition"
	FieldMission     = "brand_mission_vision"
	FieldChannels    = "marketing_channels"
	FieldPresence    = "online_marketing_presence"
)

// Reflect judges whether the accumulated facts are enough to finish. It is
// deterministic and reads only st. Ad intelligence is recorded but never
// required.
func Reflect(st model.WorkflowState) model.ReflectionVerdict {
	rec := st.Extraction
	v := model.ReflectionVerdict{
		HasIdentity:  rec.Has(FieldCompanyName),
		HasSubstance: rec.Has(FieldPositioning) || rec.Has(FieldMission) || rec.Has(FieldChannels),
		HasBreadth:   rec.Has(FieldPresence),
		HasAdIntel:   st.Ads != nil,
	}
	v.Sufficient = v.HasIdentity && v.HasSubstance && v.HasBreadth

	if !v.HasIdentity {
		v.Missing = append(v.Missing, FieldCompanyName)
	}
	if !v.HasSubstance {
		v.Missing = append(v.Missing, FieldPositioning+" | "+FieldMission+" | "+FieldChannels)
	}
	if !v.HasBreadth {
		v.Missing = append(v.Missing, FieldPresence)
	}
	return v
}
