// Package issueprocessor builds the fixed sixteen-node workflow that
// drives a single tracked issue through analyze, plan, branch/PR creation,
// and an iterative implement-test-fix loop to a finalized pull request.
package issueprocessor

import (
	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

// Context keys the schema's nodes read and write. Unlike the generic
// nodes package, these names are fixed by this workflow's own domain, not
// a configurable ResultKey.
const (
	ctxIssueNumber      = "issueNumber"
	ctxIssueTitle       = "issueTitle"
	ctxIssueBody        = "issueBody"
	ctxRepository       = "repository"
	ctxBaseBranch       = "baseBranch"
	ctxAnalysisResult   = "analysisResult"
	ctxTasks            = "tasks"
	ctxCurrentTaskIndex = "currentTaskIndex"
	ctxCurrentTask      = "currentTaskDescription"
	ctxBranchName       = "branchName"
	ctxPRNumber         = "prNumber"
	ctxPRURL            = "prUrl"
	ctxCompletedNodes   = "completedNodes"
	ctxFailedNodes      = "failedNodes"
	ctxTestsPassed      = "testsPassed"
	ctxAllTasksComplete = "allTasksComplete"
	ctxFixAttempts      = "fixAttempts"
	ctxMaxFixAttempts   = "maxFixAttempts"
	ctxPRBodyMarkdown   = "prBodyMarkdown"
	ctxActionsRunURL    = "actionsRunUrl"
	ctxProjectOwner     = "projectOwner"
	ctxProjectNumber    = "projectNumber"
	ctxDoneStatus       = "doneStatus"
)

// Task is a unit of planned work produced by PLAN and consumed by the
// implement-test-fix loop.
type Task struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Complexity   string   `json:"complexity"` // small|medium|large
	Dependencies []string `json:"dependencies,omitempty"`
	Files        []string `json:"files,omitempty"`
	Completed    bool     `json:"completed"`
}

// Config parameterizes a single issue-processor run: the issue it
// operates on, the collaborators its injected nodes call, and the retry
// and status-sync policy.
type Config struct {
	RunID       string
	Owner       string
	Repo        string
	IssueNumber int
	IssueTitle  string
	IssueBody   string
	BaseBranch  string

	Model          string
	MaxFixAttempts int
	ActionsRunURL  string

	ProjectOwner  string
	ProjectNumber int
	DoneStatus    string

	Tracker   providers.Tracker   // nil: SET_DONE_STATUS is a noop
	IssueREST providers.IssueREST // nil: WRITE_PR_STATUS/WRITE_FINAL_PR are noops; REPORT posts no comment

	// CleanupBranch deletes the working branch from REPORT, after the
	// completion comment when IssueREST is set. Off by default: most teams want the branch
	// kept around until their own merge-queue tooling removes it.
	CleanupBranch bool
}

// withDefaults fills in the zero-value defaults spec.md §4.8/§6 name.
func (c Config) withDefaults() Config {
	if c.BaseBranch == "" {
		c.BaseBranch = "main"
	}
	if c.MaxFixAttempts <= 0 {
		c.MaxFixAttempts = 3
	}
	if c.DoneStatus == "" {
		c.DoneStatus = "Done"
	}
	return c
}

func (c Config) repository() string {
	return c.Owner + "/" + c.Repo
}

// initialContext seeds the WorkflowState context this schema's nodes
// expect to find populated from the first step onward.
func (c Config) initialContext() graph.Context {
	return graph.Context{
		ctxIssueNumber:      c.IssueNumber,
		ctxIssueTitle:       c.IssueTitle,
		ctxIssueBody:        c.IssueBody,
		ctxRepository:       c.repository(),
		ctxBaseBranch:       c.BaseBranch,
		ctxCurrentTaskIndex: 0,
		ctxCurrentTask:      "",
		ctxCompletedNodes:   []string{},
		ctxFailedNodes:      []string{},
		ctxTestsPassed:      false,
		ctxAllTasksComplete: false,
		ctxFixAttempts:      0,
		ctxMaxFixAttempts:   c.MaxFixAttempts,
		ctxActionsRunURL:    c.ActionsRunURL,
		ctxProjectOwner:     c.ProjectOwner,
		ctxProjectNumber:    c.ProjectNumber,
		ctxDoneStatus:       c.DoneStatus,
	}
}

// markVisited appends name to completedNodes unless it's already the last
// entry, giving every Eval sibling a one-line way to record that its node
// ran — the append-only trail §4.8 says the dashboard renders from.
func markVisited(ctx graph.Context, name string) []string {
	visited := stringsFrom(ctx[ctxCompletedNodes])
	if len(visited) > 0 && visited[len(visited)-1] == name {
		return visited
	}
	return append(visited, name)
}

// stringsFrom normalizes a context slice value that may be []string
// in-process or []interface{} after a JSON round-trip through the
// persistence store.
func stringsFrom(v any) []string {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
