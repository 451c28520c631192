package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNextAcceptsSchemaName(t *testing.T) {
	schema := map[string]struct{}{"B": {}}
	next, err := resolveNext("A", Literal("B"), &WorkflowState{}, schema)
	require.NoError(t, err)
	assert.Equal(t, "B", next)
}

func TestResolveNextAcceptsSentinelNotInSchema(t *testing.T) {
	schema := map[string]struct{}{"B": {}}
	next, err := resolveNext("A", Literal(End), &WorkflowState{}, schema)
	require.NoError(t, err)
	assert.Equal(t, End, next)
}

func TestResolveNextRejectsUnknownName(t *testing.T) {
	schema := map[string]struct{}{"B": {}}
	_, err := resolveNext("A", Literal("NOPE"), &WorkflowState{}, schema)
	require.Error(t, err)
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, "A", invalid.From)
}

func TestLiteralIgnoresState(t *testing.T) {
	then := Literal("X")
	assert.Equal(t, "X", then(nil))
	assert.Equal(t, "X", then(&WorkflowState{CurrentNode: "whatever"}))
}
