package providers

import (
	"context"

	"google.golang.org/genai"

	"github.com/iota-uz/foundry/internal/providers/llmerrors"
)

// GeminiClient adapts google.golang.org/genai to LLMClient, for model
// names in the gemini-* family.
type GeminiClient struct {
	sdk *genai.Client
}

// NewGeminiClient builds a Gemini-backed LLMClient against the public
// Gemini API (not Vertex).
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{sdk: client}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var parts []*genai.Part
	for _, m := range req.Messages {
		parts = append(parts, genai.NewPartFromText(m.Content))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := g.sdk.Models.GenerateContent(ctx, req.Model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return CompletionResponse{}, &llmerrors.Error{Err: err, Type: llmerrors.ErrorTypeTransient}
	}
	text := resp.Text()
	if text == "" {
		return CompletionResponse{}, &llmerrors.Error{Type: llmerrors.ErrorTypeEmptyResponse, Message: "empty response from Gemini"}
	}

	var inTok, outTok int
	if resp.UsageMetadata != nil {
		inTok = int(resp.UsageMetadata.PromptTokenCount)
		outTok = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return CompletionResponse{Content: text, InputTokens: inTok, OutputTokens: outTok}, nil
}
