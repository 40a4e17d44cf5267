package extract

import (
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// joinStringFields repairs obj in place where schema asks for a string but
// the model answered with an array of strings, as in
// {"summary": ["a", "b"]}. The array becomes "a, b". Nested objects are
// repaired against their property schemas. The result reports whether
// anything changed.
func joinStringFields(obj map[string]any, schema *jsonschema.Schema) bool {
	schema = deref(schema)
	if schema == nil {
		return false
	}
	changed := false
	for key, prop := range schema.Properties {
		prop = deref(prop)
		if prop == nil {
			continue
		}
		switch v := obj[key].(type) {
		case []any:
			if !slices.Equal(prop.Types, []string{"string"}) {
				continue
			}
			if s, ok := joinStrings(v); ok {
				obj[key] = s
				changed = true
			}
		case map[string]any:
			if joinStringFields(v, prop) {
				changed = true
			}
		}
	}
	return changed
}

func deref(s *jsonschema.Schema) *jsonschema.Schema {
	for s != nil && s.Ref != nil {
		s = s.Ref
	}
	return s
}

// joinStrings joins arr when every element is a string. An empty array joins
// to the empty string.
func joinStrings(arr []any) (string, bool) {
	strs := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.(string)
		if !ok {
			return "", false
		}
		strs[i] = s
	}
	return strings.Join(strs, ", "), true
}
