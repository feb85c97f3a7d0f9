package model

import (
	"fmt"
	"strings"
	"time"
)

// ExtractionRecord is the structured output of one extraction pass. A retry
// replaces the whole record.
type ExtractionRecord struct {
	SchemaVersion string         `json:"schema_version"`
	Fields        map[string]any `json:"fields"`
	ExtractedAt   time.Time      `json:"extracted_at"`
}

var placeholders = map[string]bool{
	"unknown":       true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"null":          true,
	"not available": true,
	"-":             true,
}

// Has reports whether field holds a non-empty value.
func (r *ExtractionRecord) Has(field string) bool {
	if r == nil || r.Fields == nil {
		return false
	}
	return NonEmpty(r.Fields[field])
}

// String returns field rendered as a string, or "" when absent.
func (r *ExtractionRecord) String(field string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	switch v := r.Fields[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

// NonEmpty reports whether v carries information. Strings must not be blank
// or a placeholder; arrays need an element and objects a non-empty leaf.
func NonEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && !placeholders[s]
	case []any:
		for _, e := range t {
			if NonEmpty(e) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range t {
			if NonEmpty(e) {
				return true
			}
		}
		return false
	case map[string]any:
		for _, e := range t {
			if NonEmpty(e) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
