// Package extract turns raw completion text into typed values.
//
// A Shape names what the caller expects back. Extraction is strict: output
// that does not fit the Shape yields an *ExtractionError carrying the raw
// text, never a zero value.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind tags the variant held by a Shape.
type Kind string

const (
	KindBoolean  Kind = "boolean"
	KindCategory Kind = "category"
	KindOrdering Kind = "ordering"
	KindObject   Kind = "object"
	KindText     Kind = "text"
	KindString   Kind = "string"
)

// Ordering decisions returned by an Ordering shape.
const (
	Before = -1
	Equal  = 0
	After  = 1
)

var (
	trueWords  = map[string]bool{"true": true, "yes": true}
	falseWords = map[string]bool{"false": true, "no": true}
)

// Shape describes the expected extraction result. Build one with the
// constructors below; the zero Shape is not usable.
type Shape struct {
	Kind Kind

	// Field is the JSON property read by Boolean, Category, Ordering and String.
	Field string

	// Categories lists the accepted values of a Category shape.
	Categories []string

	// Schema is the JSON schema an Object shape validates against, if any.
	Schema json.RawMessage

	compiled *jsonschema.Schema
}

// Boolean expects {"<field>": true|false}.
func Boolean(field string) Shape {
	return Shape{Kind: KindBoolean, Field: field}
}

// Category expects {"<field>": "<one of categories>"}.
func Category(field string, categories []string) Shape {
	return Shape{Kind: KindCategory, Field: field, Categories: categories}
}

// Ordering expects {"<field>": "BEFORE"|"EQUAL"|"AFTER"}.
func Ordering(field string) Shape {
	return Shape{Kind: KindOrdering, Field: field}
}

// Text expects any non-blank text.
func Text() Shape {
	return Shape{Kind: KindText}
}

// String expects {"<field>": "..."}. An array of strings is accepted and
// joined with ", ".
func String(field string) Shape {
	return Shape{Kind: KindString, Field: field}
}

// Object expects a JSON object. A non-empty schema is compiled up front and
// every extracted object is validated against it.
func Object(schema json.RawMessage) (Shape, error) {
	s := Shape{Kind: KindObject, Schema: schema}
	if len(bytes.TrimSpace(schema)) == 0 {
		return s, nil
	}
	compiled, err := CompileSchema(schema)
	if err != nil {
		return Shape{}, err
	}
	s.compiled = compiled
	return s, nil
}

// CompileSchema compiles a JSON schema document.
func CompileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// Extract coerces raw into the Shape's Go type:
//
//	Boolean  bool
//	Category string (canonical spelling from Categories)
//	Ordering int (Before, Equal or After)
//	Object   map[string]any
//	Text     string
//	String   string
func (s Shape) Extract(raw string) (any, error) {
	switch s.Kind {
	case KindText:
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, fail(KindText, raw, "empty output")
		}
		return text, nil
	case KindObject:
		return s.object(raw)
	case KindBoolean, KindCategory, KindOrdering, KindString:
		return s.field(raw)
	default:
		return nil, fmt.Errorf("extract: unknown shape kind %q", s.Kind)
	}
}

func (s Shape) object(raw string) (map[string]any, error) {
	obj, err := DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	if s.compiled != nil {
		if err := s.compiled.Validate(obj); err != nil {
			if !joinStringFields(obj, s.compiled) || s.compiled.Validate(obj) != nil {
				return nil, fail(KindObject, raw, "schema validation: %v", err)
			}
		}
	}
	return obj, nil
}

func (s Shape) field(raw string) (any, error) {
	obj, err := DecodeObject(raw)
	if err != nil {
		ee := err.(*ExtractionError)
		ee.Shape = s.Kind
		return nil, ee
	}
	v, ok := obj[s.Field]
	if !ok || v == nil {
		return nil, fail(s.Kind, raw, "missing field %q", s.Field)
	}

	switch s.Kind {
	case KindBoolean:
		return s.boolean(v, raw)
	case KindCategory:
		return s.category(v, raw)
	case KindOrdering:
		return s.ordering(v, raw)
	default:
		return s.str(v, raw)
	}
}

func (s Shape) boolean(v any, raw string) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		word := strings.ToLower(strings.TrimSpace(b))
		if trueWords[word] {
			return true, nil
		}
		if falseWords[word] {
			return false, nil
		}
		return false, fail(KindBoolean, raw, "field %q: %q is not a boolean", s.Field, b)
	default:
		return false, fail(KindBoolean, raw, "field %q: expected boolean, got %s", s.Field, describe(v))
	}
}

func (s Shape) category(v any, raw string) (string, error) {
	got, ok := v.(string)
	if !ok {
		return "", fail(KindCategory, raw, "field %q: expected string, got %s", s.Field, describe(v))
	}
	for _, c := range s.Categories {
		if got == c {
			return c, nil
		}
	}
	norm := strings.ToLower(strings.TrimSpace(got))
	for _, c := range s.Categories {
		if norm == strings.ToLower(strings.TrimSpace(c)) {
			return c, nil
		}
	}
	return "", fail(KindCategory, raw, "field %q: %q is not one of %v", s.Field, got, s.Categories)
}

func (s Shape) ordering(v any, raw string) (int, error) {
	got, ok := v.(string)
	if !ok {
		return 0, fail(KindOrdering, raw, "field %q: expected string, got %s", s.Field, describe(v))
	}
	switch strings.ToUpper(strings.TrimSpace(got)) {
	case "BEFORE":
		return Before, nil
	case "EQUAL":
		return Equal, nil
	case "AFTER":
		return After, nil
	}
	return 0, fail(KindOrdering, raw, "field %q: %q is not BEFORE, EQUAL or AFTER", s.Field, got)
}

func (s Shape) str(v any, raw string) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		if joined, ok := joinStrings(x); ok {
			return joined, nil
		}
	}
	return "", fail(KindString, raw, "field %q: expected string, got %s", s.Field, describe(v))
}

// As extracts raw with s and asserts the result to T.
func As[T any](s Shape, raw string) (T, error) {
	var zero T
	v, err := s.Extract(raw)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("extract: %s shape yields %T, not %T", s.Kind, v, zero)
	}
	return out, nil
}
