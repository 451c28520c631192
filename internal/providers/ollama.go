package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/iota-uz/foundry/internal/providers/llmerrors"
)

// OllamaClient targets a local Ollama server — the fallback LLM backend
// for workflows that must run without a hosted-vendor API key.
type OllamaClient struct {
	sdk *api.Client
}

// NewOllamaClient connects to an Ollama server at hostURL (e.g.
// "http://localhost:11434"); an invalid URL falls back to that default.
func NewOllamaClient(hostURL string) *OllamaClient {
	parsed, err := url.Parse(hostURL)
	if err != nil || parsed.Host == "" {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{sdk: api.NewClient(parsed, http.DefaultClient)}
}

func (o *OllamaClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var messages []api.Message
	if req.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var resp api.ChatResponse
	err := o.sdk.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return CompletionResponse{}, &llmerrors.Error{Err: err, Type: llmerrors.ErrorTypeTransient}
	}
	if resp.Message.Content == "" {
		return CompletionResponse{}, &llmerrors.Error{Type: llmerrors.ErrorTypeEmptyResponse, Message: "empty response from Ollama"}
	}

	return CompletionResponse{
		Content:      resp.Message.Content,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
	}, nil
}
