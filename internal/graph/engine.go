package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/iota-uz/foundry/pkg/logx"
)

// Observer receives best-effort notifications about node execution
// outcomes. The engine never lets an Observer's absence or behavior affect
// run semantics; it exists purely so callers (e.g. a Prometheus recorder)
// can instrument the run loop without graph importing their package.
type Observer interface {
	NodeExecuted(runID, nodeName string, kind Kind, duration time.Duration, err error)
}

// EngineConfig bounds a run: where snapshots live and how many extra
// attempts a failing node gets before the run fails.
type EngineConfig struct {
	StateDir   string
	MaxRetries int // caller-supplied; default 0 (open question §9.1 resolved)
}

// Engine is the main executor of §4.3: load-or-init, run the node loop
// until a terminal sentinel, applying the retry policy, persisting after
// every step.
type Engine struct {
	store  Store
	table  Table
	config *Config
	cfg    EngineConfig
	index  *RunIndex // optional; nil disables audit-trail recording
	obs    Observer  // optional; nil disables execution metrics
}

// NewEngine wires a validated Config and its compiled node Table to a
// persistence Store. It does not validate cfg itself — callers build a
// Table with the internal/nodes package's Build, which runs Config.Validate
// before constructing any runtime.
func NewEngine(cfg *Config, table Table, store Store, engineCfg EngineConfig) *Engine {
	return &Engine{config: cfg, table: table, store: store, cfg: engineCfg}
}

// WithRunIndex attaches a supplementary audit-trail index. It never
// affects engine semantics — see RunIndex's doc comment.
func (e *Engine) WithRunIndex(idx *RunIndex) *Engine {
	e.index = idx
	return e
}

// WithObserver attaches a node-execution observer. It never affects engine
// semantics — see Observer's doc comment.
func (e *Engine) WithObserver(obs Observer) *Engine {
	e.obs = obs
	return e
}

// Run executes runId to completion (or failure), returning the final
// state. It is idempotent on resume: a prior snapshot at a non-terminal
// node picks up exactly where it left off; a prior terminal snapshot is
// returned unchanged without re-executing anything.
func (e *Engine) Run(ctx context.Context, runID string) (*WorkflowState, error) {
	state, found, err := e.store.Load(runID)
	if err != nil {
		return nil, err
	}
	if !found {
		state = NewState(e.config.Entry(), e.config.InitialContext)
	}
	if state.IsTerminal() {
		return state, nil
	}

	log := logx.With("run_id", runID)

	for !state.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		runtime, ok := e.table[state.CurrentNode]
		if !ok {
			return state, e.fail(runID, state, &UnknownNodeError{Name: state.CurrentNode})
		}

		nodeName := state.CurrentNode
		start := nowFunc()
		result, execErr := e.executeWithRetry(ctx, log, nodeName, runtime, state)
		if e.obs != nil {
			e.obs.NodeExecuted(runID, nodeName, runtime.Kind(), nowFunc().Sub(start), execErr)
		}
		if execErr != nil {
			return state, e.fail(runID, state, execErr)
		}

		state.ApplyDelta(result.Delta)

		next, resolveErr := resolveNext(nodeName, thenFromRuntime(runtime, nodeName), state, e.config.SchemaNames)
		if resolveErr != nil {
			return state, e.fail(runID, state, resolveErr)
		}

		state.CurrentNode = next
		switch next {
		case End:
			state.Status = StatusCompleted
		case Error:
			state.Status = StatusFailed
		}
		state.Touch()

		if err := e.store.Save(runID, state); err != nil {
			return state, err
		}
		if e.index != nil {
			e.index.Record(runID, e.config.ID, state)
		}
	}

	return state, nil
}

// fail transitions state into the terminal failure shape, persists it, and
// records it in the audit index before returning err unchanged.
func (e *Engine) fail(runID string, state *WorkflowState, err error) error {
	state.Status = StatusFailed
	state.CurrentNode = Error
	state.Touch()
	_ = e.store.Save(runID, state)
	if e.index != nil {
		e.index.Record(runID, e.config.ID, state)
	}
	return err
}

// thenFromRuntime adapts a Runtime's ResolveNext method to the Then
// predicate shape the transition resolver expects, so §4.1's validation
// logic is shared between the declarative (config-built) and
// runtime-table paths.
func thenFromRuntime(r Runtime, _ string) Then {
	return func(state *WorkflowState) string {
		return r.ResolveNext(state)
	}
}

// executeWithRetry calls Execute up to cfg.MaxRetries additional times on
// failure, with no backoff (§4.3b). Each attempt is logged with the node
// name and attempt number.
func (e *Engine) executeWithRetry(ctx context.Context, log *logx.Logger, name string, runtime Runtime, state *WorkflowState) (ExecResult, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		log.Debugf("node %s: executing (attempt %d/%d)", name, attempt+1, e.cfg.MaxRetries+1)
		start := nowFunc()
		result, err := runtime.Execute(ctx, state)
		duration := nowFunc().Sub(start)
		if err == nil {
			log.Infof("node %s: completed in %s", name, duration)
			return result, nil
		}
		lastErr = err
		log.Warnf("node %s: attempt %d/%d failed in %s: %v", name, attempt+1, e.cfg.MaxRetries+1, duration, err)
	}
	return ExecResult{}, &NodeExecutionError{
		NodeName: name,
		NodeKind: string(runtime.Kind()),
		Cause:    lastErr,
		Details:  fmt.Sprintf("exhausted %d retries", e.cfg.MaxRetries),
	}
}
