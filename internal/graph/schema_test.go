package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleConfig() *Config {
	return &Config{
		ID:          "wf",
		SchemaNames: map[string]struct{}{"A": {}, "B": {}},
		Nodes: []*Definition{
			{Name: "A", Kind: KindEval, Then: Literal("B"), Eval: &EvalConfig{Transform: func(*WorkflowState) Context { return nil }}},
			{Name: "B", Kind: KindEval, Then: Literal(End), Eval: &EvalConfig{Transform: func(*WorkflowState) Context { return nil }}},
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	assert.NoError(t, simpleConfig().Validate())
}

func TestValidateRejectsEmptyID(t *testing.T) {
	cfg := simpleConfig()
	cfg.ID = ""
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsReservedName(t *testing.T) {
	cfg := simpleConfig()
	cfg.Nodes[0].Name = End
	cfg.SchemaNames[End] = struct{}{}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsDuplicateName(t *testing.T) {
	cfg := simpleConfig()
	cfg.Nodes = append(cfg.Nodes, &Definition{Name: "A", Kind: KindEval, Then: Literal(End), Eval: &EvalConfig{Transform: func(*WorkflowState) Context { return nil }}})
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsUndeclaredSchemaName(t *testing.T) {
	cfg := simpleConfig()
	cfg.Nodes[0].Name = "C"
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateDetectsUnreachableNode(t *testing.T) {
	cfg := simpleConfig()
	cfg.SchemaNames["C"] = struct{}{}
	cfg.Nodes = append(cfg.Nodes, &Definition{Name: "C", Kind: KindEval, Then: Literal(End), Eval: &EvalConfig{Transform: func(*WorkflowState) Context { return nil }}})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestValidateSuppressesUnreachabilityCheckWithDynamicTransition(t *testing.T) {
	cfg := simpleConfig()
	cfg.SchemaNames["C"] = struct{}{}
	cfg.Nodes = append(cfg.Nodes, &Definition{Name: "C", Kind: KindEval, Then: Literal(End), Eval: &EvalConfig{Transform: func(*WorkflowState) Context { return nil }}})
	// Make one transition genuinely dynamic (depends on its argument).
	cfg.Nodes[0].Then = func(s *WorkflowState) string {
		if s != nil && s.CurrentNode == "seen" {
			return "B"
		}
		return "B"
	}
	// probeLiteral calls Then(nil) and Then(&WorkflowState{CurrentNode:"__probe__"}),
	// both returning "B" here, so this particular closure still reads as literal;
	// use a resolver that actually varies to exercise the dynamic path.
	calls := 0
	cfg.Nodes[0].Then = func(*WorkflowState) string {
		calls++
		if calls == 1 {
			return "B"
		}
		return "C"
	}
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestSingleTrivialWorkflowIsValid(t *testing.T) {
	cfg := &Config{
		ID:          "trivial",
		SchemaNames: map[string]struct{}{"ONLY": {}},
		Nodes: []*Definition{
			{Name: "ONLY", Kind: KindEval, Then: Literal(End), Eval: &EvalConfig{Transform: func(*WorkflowState) Context { return nil }}},
		},
	}
	assert.NoError(t, cfg.Validate())
}
