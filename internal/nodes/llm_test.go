package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

type fakeLLM struct {
	resp providers.CompletionResponse
	err  error
	req  providers.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestLLMRuntimeInterpolatesPromptAndStashesContent(t *testing.T) {
	client := &fakeLLM{resp: providers.CompletionResponse{Content: "the answer"}}
	cfg := &graph.LLMConfig{
		Model:      "claude-sonnet",
		UserPrompt: func(*graph.WorkflowState) string { return "Summarize {{issue.title}}" },
	}
	rt := NewLLM("ASK", cfg, graph.Literal(graph.End), client)

	state := graph.NewState("ASK", graph.Context{"issue": map[string]any{"title": "a bug"}})
	res, err := rt.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "Summarize a bug", client.req.Messages[0].Content)
	assert.Equal(t, "the answer", res.Delta.Context[StashLLMResult])
}

func TestLLMRuntimeThrowsOnErrorWhenConfigured(t *testing.T) {
	client := &fakeLLM{err: errors.New("provider down")}
	cfg := &graph.LLMConfig{
		UserPrompt:   func(*graph.WorkflowState) string { return "hi" },
		ThrowOnError: true,
	}
	rt := NewLLM("ASK", cfg, graph.Literal(graph.End), client)

	_, err := rt.Execute(context.Background(), graph.NewState("ASK", nil))
	require.Error(t, err)
}

func TestLLMRuntimeSwallowsErrorWhenNotConfiguredToThrow(t *testing.T) {
	client := &fakeLLM{err: errors.New("provider down")}
	cfg := &graph.LLMConfig{UserPrompt: func(*graph.WorkflowState) string { return "hi" }}
	rt := NewLLM("ASK", cfg, graph.Literal(graph.End), client)

	res, err := rt.Execute(context.Background(), graph.NewState("ASK", nil))
	require.NoError(t, err)
	stashed := res.Delta.Context[StashLLMResult].(map[string]any)
	assert.False(t, stashed["success"].(bool))
}
