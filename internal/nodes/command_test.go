package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/internal/graph"
)

type fakeRunner struct {
	result execx.Result
	err    error
	argv   []string
}

func (f *fakeRunner) Run(_ context.Context, argv []string, _ execx.Opts) (execx.Result, error) {
	f.argv = argv
	return f.result, f.err
}

func TestCommandRuntimeStashesResultUnderDefaultKey(t *testing.T) {
	runner := &fakeRunner{result: execx.Result{Stdout: "hi", ExitCode: 0, Success: true}}
	cfg := &graph.CommandConfig{CommandString: "echo hi"}
	rt := NewCommand("RUN", cfg, graph.Literal(graph.End), runner)

	res, err := rt.Execute(context.Background(), graph.NewState("RUN", nil))
	require.NoError(t, err)
	stashed, ok := res.Delta.Context[StashCommandResult]
	require.True(t, ok)
	assert.Equal(t, "hi", stashed.(CommandResult).Stdout)
}

func TestCommandRuntimeThrowsOnErrorWhenConfigured(t *testing.T) {
	runner := &fakeRunner{result: execx.Result{ExitCode: 1, Success: false, Stderr: "boom"}}
	cfg := &graph.CommandConfig{CommandString: "false", ThrowOnError: true}
	rt := NewCommand("RUN", cfg, graph.Literal(graph.End), runner)

	_, err := rt.Execute(context.Background(), graph.NewState("RUN", nil))
	require.Error(t, err)
	var nodeErr *graph.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
}

func TestCommandRuntimeTimesOut(t *testing.T) {
	runner := &fakeRunner{result: execx.Result{TimedOut: true}}
	cfg := &graph.CommandConfig{CommandString: "sleep 100"}
	rt := NewCommand("RUN", cfg, graph.Literal(graph.End), runner)

	_, err := rt.Execute(context.Background(), graph.NewState("RUN", nil))
	require.Error(t, err)
	var nodeErr *graph.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	var timeoutErr *graph.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestDynamicCommandRuntimeResolvesArgvFromState(t *testing.T) {
	runner := &fakeRunner{result: execx.Result{Success: true}}
	cfg := &graph.DynamicCommandConfig{
		Command: func(s *graph.WorkflowState) []string {
			return []string{"echo", s.Context.GetString("msg")}
		},
	}
	rt := NewDynamicCommand("RUN", cfg, graph.Literal(graph.End), runner)

	state := graph.NewState("RUN", graph.Context{"msg": "hello"})
	_, err := rt.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hello"}, runner.argv)
}
