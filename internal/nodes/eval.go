package nodes

import (
	"context"

	"github.com/iota-uz/foundry/internal/graph"
)

// evalRuntime runs a pure, synchronous context transform — no I/O,
// no suspension, never fails on its own.
type evalRuntime struct {
	cfg  *graph.EvalConfig
	then graph.Then
}

// NewEval builds the Runtime for an Eval node.
func NewEval(cfg *graph.EvalConfig, then graph.Then) graph.Runtime {
	return &evalRuntime{cfg: cfg, then: then}
}

func (r *evalRuntime) Kind() graph.Kind { return graph.KindEval }

func (r *evalRuntime) Execute(_ context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	patch := r.cfg.Transform(state)
	return graph.ExecResult{Delta: graph.StateDelta{Context: patch}}, nil
}

func (r *evalRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
