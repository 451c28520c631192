package nodes

import (
	"context"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

// ProjectStatusConfig configures the injected runtime behind
// SET_DONE_STATUS: it is not one of the nine Kinds dispatched by Build
// because it exists only inside the issue-processor's fixed schema, where
// it replaces the Eval placeholder when a project tracker is configured.
type ProjectStatusConfig struct {
	Tracker     providers.Tracker
	Owner       string
	Repo        string
	IssueNumber func(state *graph.WorkflowState) int
	Status      func(state *graph.WorkflowState) string
	ResultKey   string
}

// projectStatusRuntime pushes the issue-processor's terminal status to the
// project tracker, converging with the Eval placeholder it replaces.
type projectStatusRuntime struct {
	cfg  ProjectStatusConfig
	then graph.Then
}

// NewProjectStatus builds the SET_DONE_STATUS injected runtime.
func NewProjectStatus(cfg ProjectStatusConfig, then graph.Then) graph.Runtime {
	return &projectStatusRuntime{cfg: cfg, then: then}
}

func (r *projectStatusRuntime) Kind() graph.Kind { return graph.KindEval }

func (r *projectStatusRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	if r.cfg.Tracker == nil {
		// No project configured: noop, matching the Eval placeholder's
		// behavior (§9 open question 3: both paths converge).
		return graph.ExecResult{}, nil
	}

	issueNumber := r.cfg.IssueNumber(state)
	status := r.cfg.Status(state)
	err := r.cfg.Tracker.UpdateStatus(ctx, providers.UpdateStatusRequest{
		Owner: r.cfg.Owner, Repo: r.cfg.Repo, IssueNumber: issueNumber, Status: status,
	})
	key := resultKey(r.cfg.ResultKey, StashProjectResult)
	if err != nil {
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}
	return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
		key: map[string]any{"status": status, "success": true},
	}}}, nil
}

func (r *projectStatusRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }

// CommentConfig configures a node that posts (or updates) an issue
// comment — used by the issue-processor's progress-reporting steps.
type CommentConfig struct {
	IssueREST   providers.IssueREST
	Owner       string
	Repo        string
	IssueNumber func(state *graph.WorkflowState) int
	Body        func(state *graph.WorkflowState) string
	ResultKey   string
}

type commentRuntime struct {
	cfg  CommentConfig
	then graph.Then
}

// NewComment builds a comment-posting injected runtime.
func NewComment(cfg CommentConfig, then graph.Then) graph.Runtime {
	return &commentRuntime{cfg: cfg, then: then}
}

func (r *commentRuntime) Kind() graph.Kind { return graph.KindEval }

func (r *commentRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	body := r.cfg.Body(state)
	err := r.cfg.IssueREST.PostComment(ctx, r.cfg.Owner, r.cfg.Repo, r.cfg.IssueNumber(state), body)
	key := resultKey(r.cfg.ResultKey, StashCommentResult)
	if err != nil {
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}
	return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
		key: map[string]any{"success": true},
	}}}, nil
}

func (r *commentRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }

// PRVisualizerConfig configures the node that upserts the Mermaid
// dashboard into a pull request's body via marker-delimited replacement.
type PRVisualizerConfig struct {
	IssueREST providers.IssueREST
	Owner     string
	Repo      string
	PRNumber  func(state *graph.WorkflowState) int
	MarkerID  func(state *graph.WorkflowState) string
	Render    func(state *graph.WorkflowState) string
	MarkReady bool
	ResultKey string
}

type prVisualizerRuntime struct {
	cfg  PRVisualizerConfig
	then graph.Then
}

// NewPRVisualizer builds the PR-dashboard injected runtime.
func NewPRVisualizer(cfg PRVisualizerConfig, then graph.Then) graph.Runtime {
	return &prVisualizerRuntime{cfg: cfg, then: then}
}

func (r *prVisualizerRuntime) Kind() graph.Kind { return graph.KindEval }

func (r *prVisualizerRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	prNumber := r.cfg.PRNumber(state)
	current, err := r.cfg.IssueREST.GetPRBody(ctx, r.cfg.Owner, r.cfg.Repo, prNumber)
	if err != nil {
		current = ""
	}
	updated := upsertDashboard(current, r.cfg.MarkerID(state), r.cfg.Render(state))
	key := resultKey(r.cfg.ResultKey, StashPRVisualizerResult)
	if err := r.cfg.IssueREST.UpdatePRBody(ctx, r.cfg.Owner, r.cfg.Repo, prNumber, updated); err != nil {
		return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
			key: map[string]any{"error": err.Error(), "success": false},
		}}}, nil
	}
	if r.cfg.MarkReady {
		if err := r.cfg.IssueREST.MarkPRReady(ctx, r.cfg.Owner, r.cfg.Repo, prNumber); err != nil {
			return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
				key: map[string]any{"error": err.Error(), "success": false},
			}}}, nil
		}
	}
	return graph.ExecResult{Delta: graph.StateDelta{Context: graph.Context{
		key: map[string]any{"success": true},
	}}}, nil
}

func (r *prVisualizerRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
