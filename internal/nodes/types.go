// Package nodes constructs a graph.Table of concrete node runtimes from a
// graph.Config. It is the only package that imports both graph (for the
// types it dispatches on) and the domain backends (execx, providers) that
// implement each kind's side effect — keeping graph itself free of any
// dependency on them.
package nodes

import "github.com/iota-uz/foundry/pkg/utils"

// Stash keys a node's ExecResult writes its raw result under when the
// node's own ResultKey is unset. Downstream Eval transforms and templated
// prompts read these as the default "last result" channel for their kind.
const (
	StashCommandResult        = "lastCommandResult"
	StashDynamicCommandResult = "lastDynamicCommandResult"
	StashHTTPResult           = "lastHttpResult"
	StashLLMResult            = "lastLLMResult"
	StashEvalResult           = "lastEvalResult"
	StashSlashCommandResult   = "lastSlashCommandResult"
	StashAgentResult          = "lastAgentResult"
	StashDynamicAgentResult   = "lastDynamicAgentResult"
	StashGitCheckoutResult    = "lastGitCheckoutResult"
	StashProjectResult        = "lastProjectResult"
	StashCommentResult        = "lastCommentResult"
	StashPRVisualizerResult   = "lastPRVisualizerResult"
)

// resultKey returns configured if non-empty, else fallback — the uniform
// rule every node constructor applies when deciding where to stash its
// ExecResult.
func resultKey(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

// ExitCodeOf extracts a Command/DynamicCommand result's exit code whether v
// is the in-process CommandResult value or the map[string]any shape it
// becomes after a JSON round-trip through the persistence store.
func ExitCodeOf(v any) (int, bool) {
	switch r := v.(type) {
	case CommandResult:
		return r.ExitCode, true
	case map[string]any:
		n, err := utils.GetMapField[float64](r, "exitCode")
		return int(n), err == nil
	default:
		return 0, false
	}
}

// StdoutOf extracts a Command/DynamicCommand result's stdout the same way
// ExitCodeOf does for exit code.
func StdoutOf(v any) (string, bool) {
	switch r := v.(type) {
	case CommandResult:
		return r.Stdout, true
	case map[string]any:
		s, err := utils.GetMapField[string](r, "stdout")
		return s, err == nil
	default:
		return "", false
	}
}
