package nodes

import (
	"context"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

// slashCommandRuntime invokes a named, pre-registered command template.
type slashCommandRuntime struct {
	name   string
	cfg    *graph.SlashCommandConfig
	then   graph.Then
	runner providers.SlashCommandRunner
}

// NewSlashCommand builds the Runtime for a SlashCommand node.
func NewSlashCommand(name string, cfg *graph.SlashCommandConfig, then graph.Then, runner providers.SlashCommandRunner) graph.Runtime {
	return &slashCommandRuntime{name: name, cfg: cfg, then: then, runner: runner}
}

func (r *slashCommandRuntime) Kind() graph.Kind { return graph.KindSlashCommand }

func (r *slashCommandRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	resp, err := r.runner.Run(ctx, providers.SlashCommandRequest{Name: r.cfg.CommandName, Args: r.cfg.Args})
	if err != nil {
		if r.cfg.ThrowOnError {
			return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindSlashCommand), Cause: err}
		}
		key := resultKey(r.cfg.ResultKey, StashSlashCommandResult)
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}

	key := resultKey(r.cfg.ResultKey, StashSlashCommandResult)
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: map[string]any{
			"output": resp.Output, "success": true,
		}}},
	}, nil
}

func (r *slashCommandRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
