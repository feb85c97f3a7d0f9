// Package schema holds the extraction schema sent to the extraction model
// and validates extracted records against it.
package schema

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed company.schema.json
var defaultDoc []byte

// Schema is a parsed JSON Schema document.
type Schema struct {
	Version  string
	Title    string
	Required []string

	doc map[string]any
	raw []byte
}

// Default returns the built-in company marketing schema.
func Default() *Schema {
	s, err := Parse(defaultDoc, "")
	if err != nil {
		panic(eris.Wrap(err, "schema: embedded schema"))
	}
	return s
}

// Load reads a schema from a JSON file. The version falls back to the file
// name when the document does not carry one.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read %s", path)
	}
	return Parse(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Parse decodes a schema document. fallbackVersion is used when the document
// has no "version" key.
func Parse(data []byte, fallbackVersion string) (*Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "schema: decode")
	}
	if t, _ := doc["type"].(string); t != "object" {
		return nil, eris.New("schema: top-level type must be object")
	}
	if _, ok := doc["properties"].(map[string]any); !ok {
		return nil, eris.New("schema: missing properties")
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc)); err != nil {
		return nil, eris.Wrap(err, "schema: compile")
	}

	s := &Schema{doc: doc, raw: data, Version: fallbackVersion}
	if v, _ := doc["version"].(string); v != "" {
		s.Version = v
	}
	if s.Version == "" {
		s.Version = "custom"
	}
	s.Title, _ = doc["title"].(string)
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s, nil
}

// Properties returns the top-level field names in sorted order.
func (s *Schema) Properties() []string {
	props, _ := s.doc["properties"].(map[string]any)
	out := make([]string, 0, len(props))
	for k := range props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// JSON returns the schema document as indented JSON.
func (s *Schema) JSON() string {
	buf, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return string(s.raw)
	}
	return string(buf)
}

// Validate checks fields against the schema and returns one message per
// violation. A nil result means the record conforms.
func (s *Schema) Validate(fields map[string]any) []string {
	if fields == nil {
		fields = map[string]any{}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(s.doc), gojsonschema.NewGoLoader(fields))
	if err != nil {
		return []string{eris.Wrap(err, "schema: validate").Error()}
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs
}
