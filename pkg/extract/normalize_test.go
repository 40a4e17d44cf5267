package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteSchema = `{
	"type": "object",
	"properties": {
		"subject": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"author": {
			"type": "object",
			"properties": {"name": {"type": "string"}},
			"required": ["name"]
		}
	},
	"required": ["subject"]
}`

func TestJoinStringFields_OnlyWhereSchemaWantsString(t *testing.T) {
	compiled, err := CompileSchema(json.RawMessage(noteSchema))
	require.NoError(t, err)

	obj := map[string]any{
		"subject": []any{"plan", "shopping flow"},
		"tags":    []any{"x", "y"},
		"author":  map[string]any{"name": []any{"Ada"}},
		"extra":   []any{"left", "alone"},
	}

	assert.True(t, joinStringFields(obj, compiled))
	assert.Equal(t, map[string]any{
		"subject": "plan, shopping flow",
		"tags":    []any{"x", "y"},
		"author":  map[string]any{"name": "Ada"},
		"extra":   []any{"left", "alone"},
	}, obj)
}

func TestJoinStringFields_MixedArrayUntouched(t *testing.T) {
	compiled, err := CompileSchema(json.RawMessage(noteSchema))
	require.NoError(t, err)

	obj := map[string]any{"subject": []any{"a", 1.0, true}}

	assert.False(t, joinStringFields(obj, compiled))
	assert.Equal(t, []any{"a", 1.0, true}, obj["subject"])
}

func TestJoinStrings_EmptyAndSingle(t *testing.T) {
	s, ok := joinStrings([]any{})
	assert.True(t, ok)
	assert.Equal(t, "", s)

	s, ok = joinStrings([]any{"only"})
	assert.True(t, ok)
	assert.Equal(t, "only", s)
}

func TestObjectShape_RepairsStringArraysBeforeRejecting(t *testing.T) {
	shape, err := Object(json.RawMessage(noteSchema))
	require.NoError(t, err)

	got, err := As[map[string]any](shape, `{"subject": ["plan", "shopping flow"], "tags": ["x"]}`)
	require.NoError(t, err)
	assert.Equal(t, "plan, shopping flow", got["subject"])
	assert.Equal(t, []any{"x"}, got["tags"])

	// A repair that still leaves the object invalid is an extraction error.
	_, err = As[map[string]any](shape, `{"subject": ["plan"], "tags": "x"}`)
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))

	// Without a schema nothing is rewritten.
	free, err := Object(nil)
	require.NoError(t, err)
	got, err = As[map[string]any](free, `{"subject": ["plan", "shopping flow"]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"plan", "shopping flow"}, got["subject"])
}
