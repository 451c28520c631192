package providers

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/iota-uz/foundry/internal/providers/llmerrors"
)

// OpenAIClient adapts openai-go to LLMClient, for model names in the
// gpt-* / o-series family.
type OpenAIClient struct {
	sdk openai.Client
}

// NewOpenAIClient builds an OpenAI-backed LLMClient.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{sdk: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, classifyOpenAIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return CompletionResponse{}, &llmerrors.Error{Type: llmerrors.ErrorTypeEmptyResponse, Message: "empty response from OpenAI"}
	}

	return CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &llmerrors.Error{
			Err:        err,
			Type:       llmerrors.Classify(apiErr.StatusCode, false),
			StatusCode: apiErr.StatusCode,
		}
	}
	return &llmerrors.Error{Err: err, Type: llmerrors.ErrorTypeUnknown}
}
