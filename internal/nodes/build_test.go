package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/foundry/internal/graph"
)

func TestBuildDispatchesEachKindToItsRuntime(t *testing.T) {
	cfg := &graph.Config{
		ID:          "wf",
		SchemaNames: map[string]struct{}{"A": {}, "B": {}},
		Nodes: []*graph.Definition{
			{Name: "A", Kind: graph.KindEval, Then: graph.Literal("B"),
				Eval: &graph.EvalConfig{Transform: func(*graph.WorkflowState) graph.Context { return nil }}},
			{Name: "B", Kind: graph.KindCommand, Then: graph.Literal(graph.End),
				Command: &graph.CommandConfig{CommandString: "true"}},
		},
	}

	table, err := Build(cfg, Backends{Runner: &fakeRunner{}})
	require.NoError(t, err)
	assert.Equal(t, graph.KindEval, table["A"].Kind())
	assert.Equal(t, graph.KindCommand, table["B"].Kind())
}

func TestBuildPropagatesValidationFailure(t *testing.T) {
	cfg := &graph.Config{ID: "", Nodes: nil}
	_, err := Build(cfg, Backends{})
	require.Error(t, err)
	var cfgErr *graph.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
