// Package llm defines the completion port used by the list operators and
// provides adapters for concrete completion backends.
package llm

import (
	"context"
	"encoding/json"
)

// Completer is the completion port. Given a request it returns the model's
// output or fails. Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts an ordinary function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Role of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// JSONSchema constrains the model's output to a JSON document.
type JSONSchema struct {
	// Name identifies the schema for providers that require one
	Name string `json:"name"`

	// Schema is the JSON Schema document
	Schema json.RawMessage `json:"schema"`

	// Description is optional guidance on when the schema applies
	Description string `json:"description,omitempty"`

	// Strict asks providers that support it to enforce the schema exactly
	Strict bool `json:"strict,omitempty"`
}

// Request is one unit of work for the completion port. It is built once and
// never mutated after it is handed to a Completer.
type Request struct {
	System      string      `json:"system,omitempty"`
	Prompt      string      `json:"prompt"`
	History     []Message   `json:"history,omitempty"`
	JSONMode    bool        `json:"jsonMode,omitempty"`
	Schema      *JSONSchema `json:"schema,omitempty"`
	MaxTokens   int         `json:"maxTokens,omitempty"`
	Temperature float64     `json:"temperature"`
}

// WantsJSON reports whether the request expects a JSON document back.
func (r Request) WantsJSON() bool {
	return r.JSONMode || r.Schema != nil
}

// Messages flattens the request into the chat message sequence most
// providers accept: system, history, then the prompt as a user turn.
func (r Request) Messages() []Message {
	msgs := make([]Message, 0, len(r.History)+2)
	if r.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.System})
	}
	msgs = append(msgs, r.History...)
	msgs = append(msgs, Message{Role: RoleUser, Content: r.Prompt})
	return msgs
}

// FinishReason explains why the model stopped generating.
type FinishReason string

const (
	FinishStop     FinishReason = "stop"
	FinishLength   FinishReason = "length"
	FinishFiltered FinishReason = "filtered"
	FinishToolCall FinishReason = "tool_call"
	FinishUnknown  FinishReason = "unknown"
)

// Details carries usage information about a completion.
type Details struct {
	InputTokens  int          `json:"inputTokens"`
	OutputTokens int          `json:"outputTokens"`
	FinishReason FinishReason `json:"finishReason"`
}

// Response is the raw output of a completion.
type Response struct {
	Text    string  `json:"text"`
	Details Details `json:"details"`
}
