package model

import (
	"fmt"
	"strings"
)

// SenderConfig describes who the outreach email comes from.
type SenderConfig struct {
	Company         string `json:"sender_company" yaml:"sender_company"`
	Name            string `json:"sender_name" yaml:"sender_name"`
	Role            string `json:"sender_role" yaml:"sender_role"`
	ServiceOffering string `json:"service_offering" yaml:"service_offering"`
	Tone            string `json:"email_tone" yaml:"email_tone"`
	Length          string `json:"email_length" yaml:"email_length"`
	CallToAction    string `json:"call_to_action" yaml:"call_to_action"`
}

// WithDefaults fills unset tone, length and call to action.
func (s SenderConfig) WithDefaults() SenderConfig {
	if s.Tone == "" {
		s.Tone = "professional"
	}
	if s.Length == "" {
		s.Length = "medium"
	}
	if s.CallToAction == "" {
		s.CallToAction = "Schedule a brief call to discuss opportunities"
	}
	return s
}

// GeneratedEmail is the generation stage output, stored verbatim.
type GeneratedEmail struct {
	Subject              string   `json:"subject_line"`
	Body                 string   `json:"email_body"`
	KeyInsights          []string `json:"key_insights_used"`
	PersonalizationScore int      `json:"personalization_score"`
}

// Render formats the email for display.
func (e *GeneratedEmail) Render() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n\n", e.Subject)
	b.WriteString(e.Body)
	b.WriteString("\n\n---\nResearch Insights Used:\n")
	for _, in := range e.KeyInsights {
		fmt.Fprintf(&b, "• %s\n", in)
	}
	fmt.Fprintf(&b, "\nPersonalization Score: %d/10", e.PersonalizationScore)
	return b.String()
}
