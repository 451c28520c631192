package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/foundry/internal/graph"
)

func TestEvalRuntimeAppliesTransform(t *testing.T) {
	cfg := &graph.EvalConfig{Transform: func(s *graph.WorkflowState) graph.Context {
		return graph.Context{"doubled": s.Context.GetInt("x") * 2}
	}}
	rt := NewEval(cfg, graph.Literal(graph.End))

	state := graph.NewState("EVAL", graph.Context{"x": 21})
	res, err := rt.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 42, res.Delta.Context["doubled"])
}

func TestEvalRuntimeKindIsEval(t *testing.T) {
	rt := NewEval(&graph.EvalConfig{Transform: func(*graph.WorkflowState) graph.Context { return nil }}, graph.Literal(graph.End))
	assert.Equal(t, graph.KindEval, rt.Kind())
}
