// Package relevance decides whether an ad search hit belongs to the target.
package relevance

import (
	"strings"
	"unicode"

	"github.com/sells-group/outreach-research/internal/identity"
	"github.com/sells-group/outreach-research/internal/model"
)

// Score weights and the inclusion threshold. These are fixed so a run can be
// reproduced exactly.
const (
	NameMatchBonus   = 15
	TokenMatchBonus  = 10
	DenylistPenalty  = -20
	LanguagePenalty  = -15
	IncludeThreshold = 5
)

// foreignMarkers lists words that indicate creatives written for a different
// market than the expected language.
var foreignMarkers = map[string][]string{
	"de": {"encantan", "comenzar", "ejercicios", "oficina", "nuestros", "también"},
	"en": {"encantan", "comenzar", "ejercicios", "oficina", "jetzt", "unsere", "kostenlos"},
}

// Score evaluates candidate against profile. lang is the expected creative
// language ("de", "en"); an empty or unknown hint disables the language check.
func Score(c model.AdCandidate, p model.IdentityProfile, lang string) model.RelevanceVerdict {
	name := strings.ToLower(c.PageName)
	base := strings.ToLower(p.BaseName)

	var v model.RelevanceVerdict
	exact := false

	forms := identity.NameForms(base)
	for _, f := range forms {
		if f != "" && strings.TrimSpace(name) == f {
			exact = true
		}
	}
	for _, f := range forms {
		if f != "" && strings.Contains(name, f) {
			v.Score += NameMatchBonus
			v.Reasons = append(v.Reasons, "name contains "+f)
			break
		}
	}

	if tokens := splitTokens(base); len(tokens) > 1 {
		all := true
		for _, tok := range tokens {
			if !strings.Contains(name, tok) {
				all = false
				break
			}
		}
		if all {
			v.Score += TokenMatchBonus
			v.Reasons = append(v.Reasons, "name contains all tokens")
		}
	}

	for _, d := range p.Denylist {
		if d != "" && strings.Contains(name, d) {
			v.Score += DenylistPenalty
			v.Reasons = append(v.Reasons, "generic advertiser "+d)
			break
		}
	}

	// An exact page-name match is never discounted for creative language.
	if !exact {
		if m := foreignMarker(c.CreativeBodies, lang); m != "" {
			v.Score += LanguagePenalty
			v.Reasons = append(v.Reasons, "foreign language marker "+m)
		}
	}

	v.Included = v.Score > IncludeThreshold
	return v
}

func splitTokens(base string) []string {
	parts := strings.Split(base, "-")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func foreignMarker(bodies []string, lang string) string {
	markers := foreignMarkers[strings.ToLower(lang)]
	if len(markers) == 0 {
		return ""
	}
	for _, body := range bodies {
		words := strings.FieldsFunc(strings.ToLower(body), func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		for _, w := range words {
			for _, m := range markers {
				if w == m {
					return m
				}
			}
		}
	}
	return ""
}
