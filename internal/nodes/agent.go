package nodes

import (
	"context"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

// agentRuntime runs a bounded, tool-using agent turn with a fixed role,
// system prompt, and capability set.
type agentRuntime struct {
	name   string
	cfg    *graph.AgentConfig
	then   graph.Then
	runner providers.AgentRunner
}

// NewAgent builds the Runtime for an Agent node.
func NewAgent(name string, cfg *graph.AgentConfig, then graph.Then, runner providers.AgentRunner) graph.Runtime {
	return &agentRuntime{name: name, cfg: cfg, then: then, runner: runner}
}

func (r *agentRuntime) Kind() graph.Kind { return graph.KindAgent }

func (r *agentRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	resp, err := r.runner.Run(ctx, providers.AgentRequest{
		Role:         r.cfg.Role,
		SystemPrompt: providers.Interpolate(r.cfg.SystemPrompt, state.Context),
		Model:        r.cfg.Model,
		Capabilities: r.cfg.Capabilities,
		MaxTurns:     r.cfg.MaxTurns,
		Temperature:  r.cfg.Temperature,
	})
	if err != nil {
		if r.cfg.ThrowOnError {
			return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindAgent), Cause: err}
		}
		key := resultKey(r.cfg.ResultKey, StashAgentResult)
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}

	key := resultKey(r.cfg.ResultKey, StashAgentResult)
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: map[string]any{
			"finalMessage": resp.FinalMessage,
			"toolCalls":    resp.ToolCalls,
			"turnsUsed":    resp.TurnsUsed,
			"success":      true,
		}}},
	}, nil
}

func (r *agentRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }

// dynamicAgentRuntime resolves model, prompts, capabilities, turn cap, and
// temperature from state at execution time.
type dynamicAgentRuntime struct {
	name   string
	cfg    *graph.DynamicAgentConfig
	then   graph.Then
	runner providers.AgentRunner
}

// NewDynamicAgent builds the Runtime for a DynamicAgent node.
func NewDynamicAgent(name string, cfg *graph.DynamicAgentConfig, then graph.Then, runner providers.AgentRunner) graph.Runtime {
	return &dynamicAgentRuntime{name: name, cfg: cfg, then: then, runner: runner}
}

func (r *dynamicAgentRuntime) Kind() graph.Kind { return graph.KindDynamicAgent }

func (r *dynamicAgentRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	req := providers.AgentRequest{Model: r.cfg.Model(state), UserPrompt: r.cfg.Prompt(state)}
	if r.cfg.System != nil {
		req.SystemPrompt = r.cfg.System(state)
	}
	if r.cfg.Capabilities != nil {
		req.Capabilities = r.cfg.Capabilities(state)
	}
	if r.cfg.MaxTurns != nil {
		req.MaxTurns = r.cfg.MaxTurns(state)
	}
	if r.cfg.Temperature != nil {
		req.Temperature = r.cfg.Temperature(state)
	}

	resp, err := r.runner.Run(ctx, req)
	if err != nil {
		if r.cfg.ThrowOnError {
			return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindDynamicAgent), Cause: err}
		}
		key := resultKey(r.cfg.ResultKey, StashDynamicAgentResult)
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}

	key := resultKey(r.cfg.ResultKey, StashDynamicAgentResult)
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: map[string]any{
			"finalMessage": resp.FinalMessage,
			"toolCalls":    resp.ToolCalls,
			"turnsUsed":    resp.TurnsUsed,
			"success":      true,
		}}},
	}, nil
}

func (r *dynamicAgentRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
