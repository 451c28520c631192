package dispatch

import (
	"context"
	"fmt"

	"github.com/iota-uz/foundry/internal/providers"
)

// ResolveConfig composes a fetch strategy with dispatch-wide bounds.
type ResolveConfig struct {
	Fetch         FetchConfig
	MaxConcurrent int
}

// Result is the end-to-end output of a dispatch resolution pass.
type Result struct {
	Resolved []*ResolvedIssue
	Cycles   []CycleInfo
	Ready    []*ResolvedIssue
	Blocked  []*ResolvedIssue
	Matrix   Matrix
}

// Run orchestrates the full pipeline: fetch, populate sub-issues,
// resolve dependency status, build the DAG, detect cycles, partition,
// emit the matrix.
func Run(ctx context.Context, cfg ResolveConfig, issues providers.IssueREST, tracker providers.Tracker) (*Result, error) {
	queue, err := Fetch(ctx, cfg.Fetch, issues, tracker)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	cache := PopulateSubIssues(ctx, queue, issues)
	resolved := Resolve(queue, cache)
	dag := BuildDAG(resolved)
	cycles := DetectCycles(dag)
	participants := CycleParticipants(cycles)
	ready, blocked := Partition(resolved, participants)
	matrix := EmitMatrix(ready, cfg.MaxConcurrent)

	return &Result{
		Resolved: resolved,
		Cycles:   cycles,
		Ready:    ready,
		Blocked:  blocked,
		Matrix:   matrix,
	}, nil
}
