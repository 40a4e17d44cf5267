package extract

import (
	"encoding/json"
	"strings"
)

// Clean strips the wrapping models put around JSON answers: surrounding
// whitespace, markdown code fences and any prose before the first '{' or
// after the last '}'. Text without braces is returned trimmed.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = unfence(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// unfence returns the body of the first ``` fence in s, dropping an optional
// language tag. An unterminated fence runs to the end of s.
func unfence(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	body := s[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// DecodeObject cleans raw and decodes it as a JSON object.
func DecodeObject(raw string) (map[string]any, error) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return nil, fail(KindObject, raw, "empty output")
	}

	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fail(KindObject, raw, "invalid JSON: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fail(KindObject, raw, "expected a JSON object, got %s", describe(v))
	}
	return obj, nil
}

// Explanation returns the "explanation" string of a JSON answer, or "" when
// raw carries none.
func Explanation(raw string) string {
	obj, err := DecodeObject(raw)
	if err != nil {
		return ""
	}
	s, _ := obj["explanation"].(string)
	return s
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
