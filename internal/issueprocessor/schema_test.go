package issueprocessor

import (
	"context"
	"testing"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/nodes"
	"github.com/iota-uz/foundry/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	lastStatus providers.UpdateStatusRequest
	calls      int
}

func (f *fakeTracker) Validate(context.Context) error { return nil }
func (f *fakeTracker) FetchItemsByStatus(context.Context, string, int, string) ([]providers.ProjectItem, error) {
	return nil, nil
}
func (f *fakeTracker) UpdateStatus(_ context.Context, req providers.UpdateStatusRequest) error {
	f.calls++
	f.lastStatus = req
	return nil
}
func (f *fakeTracker) UpdateFields(context.Context, providers.UpdateFieldsRequest) error { return nil }
func (f *fakeTracker) GetIssueStatus(context.Context, string, string, int) (string, error) {
	return "", nil
}

type fakeIssueREST struct {
	updatePRCalls  int
	markReadyCalls int
	commentCalls   int
	lastComment    string
}

func (fakeIssueREST) ListOpenIssuesByLabel(context.Context, string, string, string) ([]providers.Issue, error) {
	return nil, nil
}
func (fakeIssueREST) GetIssue(context.Context, string, string, int) (providers.Issue, error) {
	return providers.Issue{}, nil
}
func (fakeIssueREST) ListSubIssues(context.Context, string, string, int) ([]providers.SubIssueRef, error) {
	return nil, nil
}
func (f *fakeIssueREST) PostComment(_ context.Context, _, _ string, _ int, body string) error {
	f.commentCalls++
	f.lastComment = body
	return nil
}
func (fakeIssueREST) GetPRBody(context.Context, string, string, int) (string, error) {
	return "", nil
}
func (f *fakeIssueREST) UpdatePRBody(context.Context, string, string, int, string) error {
	f.updatePRCalls++
	return nil
}
func (f *fakeIssueREST) MarkPRReady(context.Context, string, string, int) error {
	f.markReadyCalls++
	return nil
}

type stubRunner struct{}

func (stubRunner) Run(context.Context, []string, execx.Opts) (execx.Result, error) {
	return execx.Result{Success: true}, nil
}

type stubAgent struct{}

func (stubAgent) Run(context.Context, providers.AgentRequest) (providers.AgentResponse, error) {
	return providers.AgentResponse{FinalMessage: "ok"}, nil
}

func testBackends() nodes.Backends {
	return nodes.Backends{Runner: stubRunner{}, Agent: stubAgent{}}
}

func TestBuildProducesAllSixteenNodes(t *testing.T) {
	cfg := Config{Owner: "acme", Repo: "widgets", IssueNumber: 7, RunID: "run-1"}

	schema, table, err := Build(cfg, testBackends())
	require.NoError(t, err)

	assert.Equal(t, nodeAnalyze, schema.Entry())
	assert.Len(t, schema.Nodes, len(allNodes))
	for _, n := range allNodes {
		_, ok := table[n]
		assert.Truef(t, ok, "missing runtime for %s", n)
	}
}

func TestBuildFallsBackToEvalNoopsWithoutBackends(t *testing.T) {
	cfg := Config{Owner: "acme", Repo: "widgets", IssueNumber: 7, RunID: "run-1"}

	_, table, err := Build(cfg, testBackends())
	require.NoError(t, err)

	for _, name := range []string{nodeWritePRStatus, nodeWriteFinalPR, nodeSetDoneStatus, nodeReport} {
		assert.Equal(t, graph.KindEval, table[name].Kind())
	}
}

func TestBuildInjectsPRVisualizerAndProjectStatusWhenConfigured(t *testing.T) {
	rest := &fakeIssueREST{}
	tracker := &fakeTracker{}
	cfg := Config{
		Owner: "acme", Repo: "widgets", IssueNumber: 7, RunID: "run-1",
		IssueREST: rest,
		Tracker:   tracker,
	}

	_, table, err := Build(cfg, testBackends())
	require.NoError(t, err)

	state := newState(graph.Context{ctxPRNumber: 42, ctxPRBodyMarkdown: "dashboard"})

	_, err = table[nodeWritePRStatus].Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 1, rest.updatePRCalls)
	assert.Equal(t, 0, rest.markReadyCalls)

	_, err = table[nodeWriteFinalPR].Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 2, rest.updatePRCalls)
	assert.Equal(t, 1, rest.markReadyCalls)

	_, err = table[nodeSetDoneStatus].Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 1, tracker.calls)

	_, err = table[nodeReport].Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 1, rest.commentCalls)
}

func TestBuildWiresCleanupBranchIntoReportAlongsideComment(t *testing.T) {
	rest := &fakeIssueREST{}
	cfg := Config{
		Owner: "acme", Repo: "widgets", IssueNumber: 7, RunID: "run-1",
		IssueREST:     rest,
		CleanupBranch: true,
	}

	_, table, err := Build(cfg, testBackends())
	require.NoError(t, err)

	assert.Equal(t, graph.KindEval, table[nodeReport].Kind())

	state := newState(graph.Context{ctxBranchName: "issue-7-widget"})
	result, err := table[nodeReport].Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 1, rest.commentCalls)
	assert.NotNil(t, result.Delta.Context[nodes.StashCommentResult])
	assert.NotNil(t, result.Delta.Context[nodes.StashDynamicCommandResult])
}

func TestBuildWiresCleanupBranchOnlyWithoutIssueREST(t *testing.T) {
	cfg := Config{Owner: "acme", Repo: "widgets", IssueNumber: 7, RunID: "run-1", CleanupBranch: true}

	_, table, err := Build(cfg, testBackends())
	require.NoError(t, err)

	assert.Equal(t, graph.KindEval, table[nodeReport].Kind())

	state := newState(graph.Context{ctxBranchName: "issue-7-widget"})
	_, err = table[nodeReport].Execute(context.Background(), state)
	require.NoError(t, err)
}

func TestWritePRStatusThenBranchesOnTestsPassed(t *testing.T) {
	passed := newState(graph.Context{ctxTestsPassed: true})
	assert.Equal(t, nodeNextTask, writePRStatusThen(passed))

	failed := newState(graph.Context{ctxTestsPassed: false})
	assert.Equal(t, nodeIncrementRetry, writePRStatusThen(failed))
}

func TestIncrementRetryThenRespectsMaxFixAttempts(t *testing.T) {
	underMax := newState(graph.Context{ctxFixAttempts: 1, ctxMaxFixAttempts: 3})
	assert.Equal(t, nodeImplement, incrementRetryThen(underMax))

	atMax := newState(graph.Context{ctxFixAttempts: 3, ctxMaxFixAttempts: 3})
	assert.Equal(t, nodeNextTask, incrementRetryThen(atMax))
}

func TestNextTaskThenBranchesOnAllTasksComplete(t *testing.T) {
	more := newState(graph.Context{ctxAllTasksComplete: false})
	assert.Equal(t, nodeImplement, nextTaskThen(more))

	done := newState(graph.Context{ctxAllTasksComplete: true})
	assert.Equal(t, nodeGenFinalPR, nextTaskThen(done))
}

func TestReportThenRoutesToErrorOnSoftFailure(t *testing.T) {
	ok := newState(graph.Context{})
	assert.Equal(t, graph.End, reportThen(ok))

	failed := newState(graph.Context{
		nodes.StashPRVisualizerResult: map[string]any{"success": false},
	})
	assert.Equal(t, graph.Error, reportThen(failed))
}
