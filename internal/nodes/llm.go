package nodes

import (
	"context"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

// llmRuntime issues a single, direct completion — no tool use, no agent
// loop — the lightest-weight way to get a model's answer into context.
type llmRuntime struct {
	name   string
	cfg    *graph.LLMConfig
	then   graph.Then
	client providers.LLMClient
}

// NewLLM builds the Runtime for an LLM node.
func NewLLM(name string, cfg *graph.LLMConfig, then graph.Then, client providers.LLMClient) graph.Runtime {
	return &llmRuntime{name: name, cfg: cfg, then: then, client: client}
}

func (r *llmRuntime) Kind() graph.Kind { return graph.KindLLM }

func (r *llmRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	userPrompt := providers.Interpolate(r.cfg.UserPrompt(state), state.Context)
	var systemPrompt string
	if r.cfg.SystemPrompt != nil {
		systemPrompt = providers.Interpolate(r.cfg.SystemPrompt(state), state.Context)
	}

	resp, err := r.client.Complete(ctx, providers.CompletionRequest{
		Model:           r.cfg.Model,
		SystemPrompt:    systemPrompt,
		Messages:        []providers.Message{{Role: "user", Content: userPrompt}},
		Temperature:     r.cfg.Temperature,
		MaxTokens:       r.cfg.MaxTokens,
		ReasoningEffort: r.cfg.ReasoningEffort,
		EnableWebSearch: r.cfg.EnableWebSearch,
		JSONMode:        r.cfg.OutputMode == "json",
	})
	if err != nil {
		if r.cfg.ThrowOnError {
			return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindLLM), Cause: err}
		}
		key := resultKey(r.cfg.ResultKey, StashLLMResult)
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}

	key := resultKey(r.cfg.ResultKey, StashLLMResult)
	value := any(resp.Content)
	if r.cfg.OutputMode == "json" {
		value = map[string]any{"content": resp.Content, "success": true}
	}
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: value}},
	}, nil
}

func (r *llmRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
