// Package dispatch resolves a batch of tracked issues into an ordered
// dispatch matrix: fetch, populate sub-issue edges, compute dependency
// status, detect cycles, partition ready/blocked, emit the matrix.
package dispatch

import "fmt"

// Priority is the five-level urgency scale issues map to.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityNone     Priority = "none"
)

// priorityScore maps a Priority to its sort key; lower dispatches first.
var priorityScore = map[Priority]int{ //nolint:gochecknoglobals
	PriorityCritical: 0,
	PriorityHigh:      1,
	PriorityMedium:    2,
	PriorityLow:       3,
	PriorityNone:      4,
}

// Score returns p's numeric sort key, defaulting to PriorityNone's score
// for any unrecognized value.
func (p Priority) Score() int {
	if s, ok := priorityScore[p]; ok {
		return s
	}
	return priorityScore[PriorityNone]
}

// IssueStatus is a resolved issue's dependency state.
type IssueStatus string

const (
	StatusReady   IssueStatus = "READY"
	StatusBlocked IssueStatus = "BLOCKED"
	StatusClosed  IssueStatus = "CLOSED"
)

// QueuedIssue is the fetcher's raw output, before dependency resolution.
type QueuedIssue struct {
	Number            int
	Title             string
	Body              string
	State             string // "open" | "closed"
	Labels            []string
	Owner             string
	Repo              string
	URL               string
	SubIssueNumbers   []int
	ParentIssueNumber *int
	ProjectPriority   string
}

// ID returns the issue's DAG-node identity, owner/repo#number.
func (q *QueuedIssue) ID() string {
	return fmt.Sprintf("%s/%s#%d", q.Owner, q.Repo, q.Number)
}

// DependencyRef names a sub-issue relationship by id and cached state.
type DependencyRef struct {
	ID    string
	State string
}

// ResolvedIssue augments a QueuedIssue with computed dependency status.
type ResolvedIssue struct {
	Issue         *QueuedIssue
	Status        IssueStatus
	Dependencies  []DependencyRef
	BlockedBy     []DependencyRef
	Priority      Priority
	PriorityScore int
	IsLeaf        bool
}

// DagNode is one vertex of the dependency graph; edges reference other
// nodes only by id, so cycles are representable without ownership loops.
type DagNode struct {
	ID         string
	Issue      *ResolvedIssue
	DependsOn  []string
	DependedBy []string
}

// CycleInfo reports one detected cycle as a warning, not a fatal error.
type CycleInfo struct {
	CycleNodes []string
}

// MatrixEntry is a single row of the dispatch matrix's wire format.
type MatrixEntry struct {
	IssueNumber       int      `json:"issue_number"`
	Title             string   `json:"title"`
	Priority          string   `json:"priority"`
	PriorityScore     int      `json:"priority_score"`
	Repository        string   `json:"repository"`
	URL               string   `json:"url"`
	ParentIssueNumber *int     `json:"parent_issue_number,omitempty"`
}

// Matrix is the dispatch wire format: {"include": [...]}.
type Matrix struct {
	Include []MatrixEntry `json:"include"`
}
