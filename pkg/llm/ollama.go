package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient implements Completer using a local Ollama chat API
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient creates a new Ollama client
// baseURL is typically "http://localhost:11434"
// model is the LLM model name, e.g. "mistral"
func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second, // 5 minutes for slow local models
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []Message       `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error,omitempty"`
}

// Complete sends the request to /api/chat. A schema is passed through as the
// structured output format; JSON mode maps to format "json".
func (c *OllamaClient) Complete(ctx context.Context, req Request) (Response, error) {
	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: req.Messages(),
		Stream:   false,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}
	switch {
	case req.Schema != nil && len(req.Schema.Schema) > 0:
		reqBody.Format = req.Schema.Schema
	case req.WantsJSON():
		reqBody.Format = json.RawMessage(`"json"`)
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, &PortError{Provider: "ollama", Err: fmt.Errorf("ollama request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Response{}, &PortError{Provider: "ollama", Status: resp.StatusCode, Err: fmt.Errorf("%s", string(body))}
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, &PortError{Provider: "ollama", Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.Error != "" {
		return Response{}, &PortError{Provider: "ollama", Err: fmt.Errorf("%s", result.Error)}
	}

	finish := FinishUnknown
	switch result.DoneReason {
	case "stop":
		finish = FinishStop
	case "length":
		finish = FinishLength
	}

	return Response{
		Text: result.Message.Content,
		Details: Details{
			InputTokens:  result.PromptEvalCount,
			OutputTokens: result.EvalCount,
			FinishReason: finish,
		},
	}, nil
}
