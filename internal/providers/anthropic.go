package providers

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/iota-uz/foundry/internal/providers/llmerrors"
)

// ClaudeClient adapts anthropic-sdk-go to LLMClient for the engine's LLM
// node: a single-turn completion, no tool use, no agent loop.
type ClaudeClient struct {
	sdk   anthropic.Client
	model string
}

// NewClaudeClient builds a Claude-backed LLMClient. Retries are handled by
// the resilience wrappers, not the SDK, so the SDK's own retry count is
// pinned to zero.
func NewClaudeClient(apiKey string) *ClaudeClient {
	return &ClaudeClient{
		sdk: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5)
	}

	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    messages,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, classifyAnthropicError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return CompletionResponse{}, &llmerrors.Error{Type: llmerrors.ErrorTypeEmptyResponse, Message: "empty response from Claude"}
	}

	var text string
	for _, block := range resp.Content {
		if block.Text != "" {
			text += block.Text
		}
	}

	return CompletionResponse{
		Content:      text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &llmerrors.Error{
			Err:        err,
			Type:       llmerrors.Classify(apiErr.StatusCode, false),
			StatusCode: apiErr.StatusCode,
		}
	}
	return &llmerrors.Error{Err: err, Type: llmerrors.ErrorTypeUnknown}
}
