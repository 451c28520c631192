package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/internal/graph"
)

const defaultCommandTimeout = 300 * time.Second

// CommandResult is the shape stashed into context for a completed Command
// or DynamicCommand node.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	Success  bool   `json:"success"`
}

// commandRuntime executes a fixed, literal shell string via a Runner.
type commandRuntime struct {
	name   string
	cfg    *graph.CommandConfig
	then   graph.Then
	runner execx.Runner
}

// NewCommand builds the Runtime for a Command node.
func NewCommand(name string, cfg *graph.CommandConfig, then graph.Then, runner execx.Runner) graph.Runtime {
	return &commandRuntime{name: name, cfg: cfg, then: then, runner: runner}
}

func (r *commandRuntime) Kind() graph.Kind { return graph.KindCommand }

func (r *commandRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	timeout := defaultCommandTimeout
	if r.cfg.Timeout > 0 {
		timeout = time.Duration(r.cfg.Timeout) * time.Second
	}

	res, err := r.runner.Run(ctx, execx.ResolveShellString(r.cfg.CommandString), execx.Opts{
		WorkDir: r.cfg.Cwd,
		Env:     r.cfg.Env,
		Timeout: timeout,
	})
	if err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindCommand), Cause: err}
	}
	if res.TimedOut {
		return graph.ExecResult{}, &graph.NodeExecutionError{
			NodeName: r.name, NodeKind: string(graph.KindCommand),
			Cause: &graph.TimeoutError{Operation: r.cfg.CommandString, Bound: timeout.String()},
		}
	}
	if r.cfg.ThrowOnError && !res.Success {
		return graph.ExecResult{}, &graph.NodeExecutionError{
			NodeName: r.name, NodeKind: string(graph.KindCommand),
			Cause: fmt.Errorf("command exited %d: %s", res.ExitCode, res.Stderr),
		}
	}

	key := resultKey(r.cfg.ResultKey, StashCommandResult)
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: CommandResult{
			Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode, Success: res.Success,
		}}},
	}, nil
}

func (r *commandRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }

// dynamicCommandRuntime resolves its argument vector from state at
// execution time instead of a fixed config string.
type dynamicCommandRuntime struct {
	name   string
	cfg    *graph.DynamicCommandConfig
	then   graph.Then
	runner execx.Runner
}

// NewDynamicCommand builds the Runtime for a DynamicCommand node.
func NewDynamicCommand(name string, cfg *graph.DynamicCommandConfig, then graph.Then, runner execx.Runner) graph.Runtime {
	return &dynamicCommandRuntime{name: name, cfg: cfg, then: then, runner: runner}
}

func (r *dynamicCommandRuntime) Kind() graph.Kind { return graph.KindDynamicCommand }

func (r *dynamicCommandRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	resolved := r.cfg.Command(state)
	argv := resolved
	if len(resolved) == 1 {
		argv = execx.ResolveShellString(resolved[0])
	}

	timeout := defaultCommandTimeout
	if r.cfg.Timeout != nil {
		if secs := r.cfg.Timeout(state); secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	var cwd string
	if r.cfg.Cwd != nil {
		cwd = r.cfg.Cwd(state)
	}
	var env map[string]string
	if r.cfg.Env != nil {
		env = r.cfg.Env(state)
	}

	res, err := r.runner.Run(ctx, argv, execx.Opts{WorkDir: cwd, Env: env, Timeout: timeout})
	if err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindDynamicCommand), Cause: err}
	}
	if res.TimedOut {
		return graph.ExecResult{}, &graph.NodeExecutionError{
			NodeName: r.name, NodeKind: string(graph.KindDynamicCommand),
			Cause: &graph.TimeoutError{Operation: "dynamic command", Bound: timeout.String()},
		}
	}
	if r.cfg.ThrowOnError && !res.Success {
		return graph.ExecResult{}, &graph.NodeExecutionError{
			NodeName: r.name, NodeKind: string(graph.KindDynamicCommand),
			Cause: fmt.Errorf("command exited %d: %s", res.ExitCode, res.Stderr),
		}
	}

	key := resultKey(r.cfg.ResultKey, StashDynamicCommandResult)
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: CommandResult{
			Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode, Success: res.Success,
		}}},
	}, nil
}

func (r *dynamicCommandRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
