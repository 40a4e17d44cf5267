package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultModel         = "gpt-4o-mini"
	defaultMaxTokens     = 1000
	maxRetries           = 3
	initialRetryDelay    = 1 * time.Second
	backoffFactor        = 2.0
)

// OpenAIClient implements Completer for OpenAI-compatible Chat Completions APIs
type OpenAIClient struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *zap.Logger
	client  *http.Client

	// retryDelay overrides initialRetryDelay in tests
	retryDelay time.Duration
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		APIKey:     apiKey,
		Model:      defaultModel,
		BaseURL:    defaultOpenAIBaseURL,
		client:     &http.Client{Timeout: 60 * time.Second},
		retryDelay: initialRetryDelay,
	}
}

// WithTimeout replaces the HTTP timeout and returns the client.
func (o *OpenAIClient) WithTimeout(d time.Duration) *OpenAIClient {
	o.client = &http.Client{Timeout: d}
	return o
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []Message             `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Complete sends the request to the Chat Completions API, retrying rate
// limits, server errors and transport failures with jittered backoff.
func (o *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	delay := o.retryDelay
	if delay <= 0 {
		delay = initialRetryDelay
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter to delay: random value between 0.5x and 1.5x of delay
			jitter := delay/2 + time.Duration(rand.Int63n(int64(delay)))
			select {
			case <-time.After(jitter):
			case <-ctx.Done():
				return Response{}, ctx.Err()
			}
			delay = time.Duration(float64(delay) * backoffFactor)
		}

		resp, err := o.makeRequest(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !shouldRetry(err) {
			return Response{}, err
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		o.logger().Debug("retrying completion",
			zap.String("provider", "openai"),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return Response{}, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (o *OpenAIClient) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *OpenAIClient) makeRequest(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	reqBody := openAIRequest{
		Model:       o.Model,
		Messages:    req.Messages(),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	switch {
	case req.Schema != nil:
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_schema", JSONSchema: req.Schema}
	case req.JSONMode:
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, &retryableError{err: &PortError{Provider: "openai", Err: fmt.Errorf("request failed: %w", err)}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &PortError{Provider: "openai", Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		portErr := &PortError{Provider: "openai", Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
		if isContextLengthError(body) {
			portErr.Err = fmt.Errorf("%w: %s", ErrContextTooLarge, strings.TrimSpace(string(body)))
			return Response{}, portErr
		}
		// Retry on 429 (rate limit) and 5xx errors
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return Response{}, &retryableError{err: portErr}
		}
		return Response{}, portErr
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Response{}, &PortError{Provider: "openai", Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if apiResp.Error != nil {
		return Response{}, &PortError{Provider: "openai", Err: fmt.Errorf("OpenAI API error: %s", apiResp.Error.Message)}
	}
	if len(apiResp.Choices) == 0 {
		return Response{}, &PortError{Provider: "openai", Err: fmt.Errorf("no completion choices returned")}
	}

	choice := apiResp.Choices[0]
	return Response{
		Text: choice.Message.Content,
		Details: Details{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
			FinishReason: openAIFinishReason(choice.FinishReason),
		},
	}, nil
}

func isContextLengthError(body []byte) bool {
	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != nil {
		if apiResp.Error.Code == "context_length_exceeded" {
			return true
		}
	}
	return bytes.Contains(body, []byte("context_length_exceeded"))
}

func openAIFinishReason(reason string) FinishReason {
	switch reason {
	case "stop":
		return FinishStop
	case "length":
		return FinishLength
	case "content_filter":
		return FinishFiltered
	case "tool_calls", "function_call":
		return FinishToolCall
	default:
		return FinishUnknown
	}
}
