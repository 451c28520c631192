package issueprocessor

import (
	"context"
	"fmt"
	"strings"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/nodes"
	"github.com/iota-uz/foundry/pkg/utils"
)

// Node names, in the fixed order spec.md's table lists them.
const (
	nodeAnalyze        = "ANALYZE"
	nodePlan           = "PLAN"
	nodeCreatePR       = "CREATE_PR"
	nodeParsePR        = "PARSE_PR"
	nodeExplore        = "EXPLORE"
	nodeImplement      = "IMPLEMENT"
	nodeTest           = "TEST"
	nodeSetTestResult  = "SET_TEST_RESULT"
	nodeGenPRStatus    = "GEN_PR_STATUS"
	nodeWritePRStatus  = "WRITE_PR_STATUS"
	nodeIncrementRetry = "INCREMENT_RETRY"
	nodeNextTask       = "NEXT_TASK"
	nodeGenFinalPR     = "GEN_FINAL_PR"
	nodeWriteFinalPR   = "WRITE_FINAL_PR"
	nodeSetDoneStatus  = "SET_DONE_STATUS"
	nodeReport         = "REPORT"
)

// Build assembles the fixed sixteen-node workflow config and its runtime
// table for a single issue. WRITE_PR_STATUS, WRITE_FINAL_PR,
// SET_DONE_STATUS, and REPORT are declared as Eval placeholders so
// Config.Validate accepts them structurally; their table entries are then
// overridden with the injected PR-visualizer/comment/project-status
// runtimes whenever the corresponding backend is configured. A placeholder
// only records its visit in completedNodes; an injected runtime performs
// its side effect and stashes its result under its own key instead.
func Build(cfg Config, backends nodes.Backends) (*graph.Config, graph.Table, error) {
	cfg = cfg.withDefaults()

	schemaConfig := &graph.Config{
		ID:             "issue-processor",
		InitialContext: cfg.initialContext(),
		SchemaNames:    schemaNames(),
		Nodes:          nodeDefinitions(cfg),
	}

	table, err := nodes.Build(schemaConfig, backends)
	if err != nil {
		return nil, nil, fmt.Errorf("issueprocessor: %w", err)
	}

	overrideInjectedRuntimes(table, cfg, schemaConfig, backends)

	return schemaConfig, table, nil
}

func schemaNames() map[string]struct{} {
	set := make(map[string]struct{}, len(allNodes))
	for _, n := range allNodes {
		set[n] = struct{}{}
	}
	return set
}

func nodeDefinitions(cfg Config) []*graph.Definition {
	return []*graph.Definition{
		analyzeNode(cfg),
		planNode(cfg),
		createPRNode(cfg),
		parsePRNode(),
		exploreNode(),
		implementNode(cfg),
		testNode(),
		setTestResultNode(),
		genPRStatusNode(cfg),
		writePRStatusPlaceholder(),
		incrementRetryNode(),
		nextTaskNode(),
		genFinalPRNode(cfg),
		writeFinalPRPlaceholder(),
		setDoneStatusPlaceholder(),
		reportNode(),
	}
}

func analyzeNode(cfg Config) *graph.Definition {
	return &graph.Definition{
		Name: nodeAnalyze,
		Kind: graph.KindAgent,
		Then: graph.Literal(nodePlan),
		Agent: &graph.AgentConfig{
			Role:         "analyst",
			SystemPrompt: analyzeSystemPrompt,
			Model:        cfg.Model,
			Capabilities: []string{"read_file", "grep", "glob"},
			MaxTurns:     15,
			Temperature:  0.2,
			ThrowOnError: true,
			ResultKey:    ctxAnalysisResult,
		},
	}
}

func planNode(cfg Config) *graph.Definition {
	return &graph.Definition{
		Name: nodePlan,
		Kind: graph.KindAgent,
		Then: graph.Literal(nodeCreatePR),
		Agent: &graph.AgentConfig{
			Role:         "planner",
			SystemPrompt: planSystemPrompt,
			Model:        cfg.Model,
			Capabilities: []string{"read_file", "grep", "glob"},
			MaxTurns:     10,
			Temperature:  0.2,
			ThrowOnError: true,
		},
	}
}

func createPRNode(cfg Config) *graph.Definition {
	return &graph.Definition{
		Name: nodeCreatePR,
		Kind: graph.KindDynamicCommand,
		Then: graph.Literal(nodeParsePR),
		DynamicCommand: &graph.DynamicCommandConfig{
			Command: func(state *graph.WorkflowState) []string {
				title := state.Context.GetString(ctxIssueTitle)
				branch := fmt.Sprintf("issue-%d-%s", cfg.IssueNumber, utils.SanitizeIdentifier(strings.ToLower(title)))
				base := state.Context.GetString(ctxBaseBranch)
				return []string{createPRScript(branch, base, title)}
			},
			Timeout:      func(*graph.WorkflowState) int { return 120 },
			ThrowOnError: true,
		},
	}
}

func parsePRNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeParsePR,
		Kind: graph.KindEval,
		Then: graph.Literal(nodeExplore),
		Eval: &graph.EvalConfig{Transform: parsePRTransform(nodeParsePR)},
	}
}

func exploreNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeExplore,
		Kind: graph.KindCommand,
		Then: graph.Literal(nodeImplement),
		Command: &graph.CommandConfig{
			CommandString: "git ls-files",
			Timeout:       30,
			ThrowOnError:  false,
		},
	}
}

func implementNode(cfg Config) *graph.Definition {
	return &graph.Definition{
		Name: nodeImplement,
		Kind: graph.KindAgent,
		Then: graph.Literal(nodeTest),
		Agent: &graph.AgentConfig{
			Role:         "implementer",
			SystemPrompt: implementSystemPrompt,
			Model:        cfg.Model,
			Capabilities: []string{"read_file", "write_file", "grep", "glob", "run_command"},
			MaxTurns:     40,
			Temperature:  0.2,
			ThrowOnError: true,
		},
	}
}

func testNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeTest,
		Kind: graph.KindCommand,
		Then: graph.Literal(nodeSetTestResult),
		Command: &graph.CommandConfig{
			CommandString: "go build ./... && go test ./...",
			Timeout:       600,
			ThrowOnError:  false,
		},
	}
}

func setTestResultNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeSetTestResult,
		Kind: graph.KindEval,
		Then: graph.Literal(nodeGenPRStatus),
		Eval: &graph.EvalConfig{Transform: setTestResultTransform(nodeSetTestResult)},
	}
}

func genPRStatusNode(cfg Config) *graph.Definition {
	return &graph.Definition{
		Name: nodeGenPRStatus,
		Kind: graph.KindEval,
		Then: graph.Literal(nodeWritePRStatus),
		Eval: &graph.EvalConfig{Transform: genPRStatusTransform(cfg, nodeGenPRStatus)},
	}
}

// writePRStatusPlaceholder declares WRITE_PR_STATUS as an Eval noop so it
// passes structural validation; overrideInjectedRuntimes replaces its
// table entry with the PR-visualizer runtime when IssueREST is set.
func writePRStatusPlaceholder() *graph.Definition {
	return &graph.Definition{
		Name: nodeWritePRStatus,
		Kind: graph.KindEval,
		Then: writePRStatusThen,
		Eval: &graph.EvalConfig{Transform: noopEval(nodeWritePRStatus)},
	}
}

func writePRStatusThen(state *graph.WorkflowState) string {
	if state.Context.GetBool(ctxTestsPassed) {
		return nodeNextTask
	}
	return nodeIncrementRetry
}

func incrementRetryNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeIncrementRetry,
		Kind: graph.KindEval,
		Then: incrementRetryThen,
		Eval: &graph.EvalConfig{Transform: incrementRetryTransform(nodeIncrementRetry)},
	}
}

func incrementRetryThen(state *graph.WorkflowState) string {
	attempts := state.Context.GetInt(ctxFixAttempts)
	max := state.Context.GetInt(ctxMaxFixAttempts)
	if max <= 0 || attempts < max {
		return nodeImplement
	}
	return nodeNextTask
}

func nextTaskNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeNextTask,
		Kind: graph.KindEval,
		Then: nextTaskThen,
		Eval: &graph.EvalConfig{Transform: nextTaskTransform(nodeNextTask)},
	}
}

func nextTaskThen(state *graph.WorkflowState) string {
	if state.Context.GetBool(ctxAllTasksComplete) {
		return nodeGenFinalPR
	}
	return nodeImplement
}

func genFinalPRNode(cfg Config) *graph.Definition {
	return &graph.Definition{
		Name: nodeGenFinalPR,
		Kind: graph.KindEval,
		Then: graph.Literal(nodeWriteFinalPR),
		Eval: &graph.EvalConfig{Transform: genFinalPRTransform(cfg, nodeGenFinalPR)},
	}
}

func writeFinalPRPlaceholder() *graph.Definition {
	return &graph.Definition{
		Name: nodeWriteFinalPR,
		Kind: graph.KindEval,
		Then: graph.Literal(nodeSetDoneStatus),
		Eval: &graph.EvalConfig{Transform: noopEval(nodeWriteFinalPR)},
	}
}

func setDoneStatusPlaceholder() *graph.Definition {
	return &graph.Definition{
		Name: nodeSetDoneStatus,
		Kind: graph.KindEval,
		Then: graph.Literal(nodeReport),
		Eval: &graph.EvalConfig{Transform: noopEval(nodeSetDoneStatus)},
	}
}

func reportNode() *graph.Definition {
	return &graph.Definition{
		Name: nodeReport,
		Kind: graph.KindEval,
		Then: reportThen,
		Eval: &graph.EvalConfig{Transform: noopEval(nodeReport)},
	}
}

// reportThen routes to ERROR when WRITE_FINAL_PR, SET_DONE_STATUS, or
// REPORT's own comment recorded a soft failure. Nodes with
// ThrowOnError=true already divert the run to ERROR before REPORT ever
// runs, so this only needs to watch the injected runtimes, which never
// throw.
func reportThen(state *graph.WorkflowState) string {
	if softFailed(state.Context[nodes.StashPRVisualizerResult]) ||
		softFailed(state.Context[nodes.StashProjectResult]) ||
		softFailed(state.Context[nodes.StashCommentResult]) {
		return graph.Error
	}
	return graph.End
}

// reportCommentBody renders the completion comment REPORT posts back to
// the issue.
func reportCommentBody(state *graph.WorkflowState) string {
	prURL := state.Context.GetString(ctxPRURL)
	if prURL == "" {
		return "Workflow run complete."
	}
	return fmt.Sprintf("Workflow run complete. PR: %s", prURL)
}

func softFailed(v any) bool {
	m, err := utils.AssertMapStringAny(v)
	if err != nil {
		return false
	}
	return !utils.GetMapFieldOr(m, "success", true)
}

// noopEval builds an Eval transform that records visitation only — the
// placeholder behavior WRITE_PR_STATUS/WRITE_FINAL_PR/SET_DONE_STATUS/
// REPORT fall back to when their backend isn't configured.
func noopEval(name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		return graph.Context{ctxCompletedNodes: markVisited(state.Context, name)}
	}
}

// overrideInjectedRuntimes replaces the Eval placeholders for
// WRITE_PR_STATUS, WRITE_FINAL_PR, SET_DONE_STATUS, and REPORT with their
// injected runtimes when the corresponding backend is configured. REPORT
// posts its completion comment whenever IssueREST is set, and additionally
// deletes the working branch when CleanupBranch is also set; with neither
// configured it stays the Eval noop reportNode declares.
func overrideInjectedRuntimes(table graph.Table, cfg Config, schema *graph.Config, backends nodes.Backends) {
	thenOf := func(name string) graph.Then {
		for _, n := range schema.Nodes {
			if n.Name == name {
				return n.Then
			}
		}
		return graph.Literal(graph.End)
	}

	if cfg.IssueREST != nil {
		table[nodeWritePRStatus] = nodes.NewPRVisualizer(nodes.PRVisualizerConfig{
			IssueREST: cfg.IssueREST,
			Owner:     cfg.Owner,
			Repo:      cfg.Repo,
			PRNumber:  func(state *graph.WorkflowState) int { return state.Context.GetInt(ctxPRNumber) },
			MarkerID:  func(*graph.WorkflowState) string { return cfg.RunID },
			Render:    func(state *graph.WorkflowState) string { return state.Context.GetString(ctxPRBodyMarkdown) },
		}, thenOf(nodeWritePRStatus))

		table[nodeWriteFinalPR] = nodes.NewPRVisualizer(nodes.PRVisualizerConfig{
			IssueREST: cfg.IssueREST,
			Owner:     cfg.Owner,
			Repo:      cfg.Repo,
			PRNumber:  func(state *graph.WorkflowState) int { return state.Context.GetInt(ctxPRNumber) },
			MarkerID:  func(*graph.WorkflowState) string { return cfg.RunID },
			Render:    func(state *graph.WorkflowState) string { return state.Context.GetString(ctxPRBodyMarkdown) },
			MarkReady: true,
		}, thenOf(nodeWriteFinalPR))
	}

	if cfg.Tracker != nil {
		table[nodeSetDoneStatus] = nodes.NewProjectStatus(nodes.ProjectStatusConfig{
			Tracker:     cfg.Tracker,
			Owner:       cfg.Owner,
			Repo:        cfg.Repo,
			IssueNumber: func(*graph.WorkflowState) int { return cfg.IssueNumber },
			Status:      func(state *graph.WorkflowState) string { return state.Context.GetString(ctxDoneStatus) },
		}, thenOf(nodeSetDoneStatus))
	}

	if cfg.IssueREST != nil || cfg.CleanupBranch {
		table[nodeReport] = newReportRuntime(cfg, backends, thenOf(nodeReport))
	}
}

// reportRuntime runs REPORT's side effects in sequence: post the
// completion comment when IssueREST is configured, then delete the
// working branch when CleanupBranch is also set. Either step is skipped
// if its backend isn't configured; both are soft failures, recorded in
// the merged context for reportThen to inspect rather than thrown.
type reportRuntime struct {
	comment graph.Runtime
	cleanup graph.Runtime
	then    graph.Then
}

func newReportRuntime(cfg Config, backends nodes.Backends, then graph.Then) graph.Runtime {
	r := &reportRuntime{then: then}

	if cfg.IssueREST != nil {
		r.comment = nodes.NewComment(nodes.CommentConfig{
			IssueREST:   cfg.IssueREST,
			Owner:       cfg.Owner,
			Repo:        cfg.Repo,
			IssueNumber: func(*graph.WorkflowState) int { return cfg.IssueNumber },
			Body:        reportCommentBody,
		}, then)
	}

	if cfg.CleanupBranch {
		r.cleanup = nodes.NewDynamicCommand(nodeReport, &graph.DynamicCommandConfig{
			Command: func(state *graph.WorkflowState) []string {
				branch := state.Context.GetString(ctxBranchName)
				return []string{branchDeleteScript(branch)}
			},
			Timeout:      func(*graph.WorkflowState) int { return 30 },
			ThrowOnError: false,
		}, then, backends.Runner)
	}

	return r
}

func (r *reportRuntime) Kind() graph.Kind { return graph.KindEval }

func (r *reportRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	merged := graph.Context{ctxCompletedNodes: markVisited(state.Context, nodeReport)}

	if r.comment != nil {
		result, err := r.comment.Execute(ctx, state)
		if err != nil {
			return result, err
		}
		for k, v := range result.Delta.Context {
			merged[k] = v
		}
	}

	if r.cleanup != nil {
		result, err := r.cleanup.Execute(ctx, state)
		if err != nil {
			return result, err
		}
		for k, v := range result.Delta.Context {
			merged[k] = v
		}
	}

	return graph.ExecResult{Delta: graph.StateDelta{Context: merged}}, nil
}

func (r *reportRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }

// branchDeleteScript removes the working branch both locally and on the
// remote, tolerating either already being gone.
func branchDeleteScript(branch string) string {
	if branch == "" {
		return "true"
	}
	return fmt.Sprintf("git push origin --delete %s || true; git branch -D %s || true", branch, branch)
}
