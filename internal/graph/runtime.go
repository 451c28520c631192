package graph

import "context"

// ExecResult is what a node's Execute returns: the delta to merge and
// advisory metadata for logging. Metadata is never consulted by the
// engine for control flow.
type ExecResult struct {
	Delta    StateDelta
	Metadata map[string]any
}

// Runtime is the uniform contract every node kind implements (§4.2 node
// runtime interface). Execute may suspend on outbound I/O; ResolveNext is
// always called afterward with the merged state and must not suspend.
type Runtime interface {
	// Execute runs the node's side effect and returns a state patch.
	Execute(ctx context.Context, state *WorkflowState) (ExecResult, error)

	// ResolveNext yields the next node name given the post-execution,
	// merged state.
	ResolveNext(state *WorkflowState) string

	// Kind identifies the node kind for logging and error tagging.
	Kind() Kind
}

// Table maps node names to their runtimes, built once at schema-load time
// by nodes.Build (internal/nodes/build.go) and handed to the Engine.
type Table map[string]Runtime
