package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Completer using the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client for the given API key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends the request through Models.GenerateContent.
func (g *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	contents, config, err := geminiRequest(req)
	if err != nil {
		return Response{}, err
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if isGeminiContextError(err) {
			return Response{}, &PortError{Provider: "gemini", Err: fmt.Errorf("%w: %v", ErrContextTooLarge, err)}
		}
		return Response{}, &PortError{Provider: "gemini", Err: err}
	}
	if len(result.Candidates) == 0 {
		return Response{}, &PortError{Provider: "gemini", Err: fmt.Errorf("no candidates returned")}
	}

	resp := Response{
		Text: result.Text(),
		Details: Details{
			FinishReason: geminiFinishReason(result.Candidates[0].FinishReason),
		},
	}
	if result.UsageMetadata != nil {
		resp.Details.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.Details.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

// geminiRequest maps a port request onto GenAI contents and config.
func geminiRequest(req Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		var role genai.Role = genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.WantsJSON() {
		config.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil && len(req.Schema.Schema) > 0 {
		var schema any
		if err := json.Unmarshal(req.Schema.Schema, &schema); err != nil {
			return nil, nil, fmt.Errorf("invalid response schema %q: %w", req.Schema.Name, err)
		}
		config.ResponseJsonSchema = schema
	}
	return contents, config, nil
}

func geminiFinishReason(reason genai.FinishReason) FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		return FinishFiltered
	default:
		return FinishUnknown
	}
}

func isGeminiContextError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "exceeds the maximum number of tokens") ||
		strings.Contains(msg, "input token count")
}
