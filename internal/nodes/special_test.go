package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

type fakeTracker struct {
	updateStatusErr error
	lastStatus      providers.UpdateStatusRequest
}

func (f *fakeTracker) Validate(context.Context) error { return nil }
func (f *fakeTracker) FetchItemsByStatus(context.Context, string, int, string) ([]providers.ProjectItem, error) {
	return nil, nil
}
func (f *fakeTracker) UpdateStatus(_ context.Context, req providers.UpdateStatusRequest) error {
	f.lastStatus = req
	return f.updateStatusErr
}
func (f *fakeTracker) UpdateFields(context.Context, providers.UpdateFieldsRequest) error { return nil }
func (f *fakeTracker) GetIssueStatus(context.Context, string, string, int) (string, error) {
	return "", nil
}

type fakeIssueREST struct {
	prBody         string
	getPRBodyErr   error
	updatePRBody   string
	updatePRErr    error
	markReadyErr   error
	markReadyCalls int
	postedComment  string
	postCommentErr error
}

func (f *fakeIssueREST) ListOpenIssuesByLabel(context.Context, string, string, string) ([]providers.Issue, error) {
	return nil, nil
}
func (f *fakeIssueREST) GetIssue(context.Context, string, string, int) (providers.Issue, error) {
	return providers.Issue{}, nil
}
func (f *fakeIssueREST) ListSubIssues(context.Context, string, string, int) ([]providers.SubIssueRef, error) {
	return nil, nil
}
func (f *fakeIssueREST) PostComment(_ context.Context, _, _ string, _ int, body string) error {
	f.postedComment = body
	return f.postCommentErr
}
func (f *fakeIssueREST) GetPRBody(context.Context, string, string, int) (string, error) {
	return f.prBody, f.getPRBodyErr
}
func (f *fakeIssueREST) UpdatePRBody(_ context.Context, _, _ string, _ int, body string) error {
	f.updatePRBody = body
	return f.updatePRErr
}
func (f *fakeIssueREST) MarkPRReady(context.Context, string, string, int) error {
	f.markReadyCalls++
	return f.markReadyErr
}

func TestProjectStatusRuntimeIsNoopWithoutTracker(t *testing.T) {
	rt := NewProjectStatus(ProjectStatusConfig{
		IssueNumber: func(*graph.WorkflowState) int { return 1 },
		Status:      func(*graph.WorkflowState) string { return "Done" },
	}, graph.Literal(graph.End))

	res, err := rt.Execute(context.Background(), graph.NewState("SET_DONE_STATUS", nil))
	require.NoError(t, err)
	assert.Empty(t, res.Delta.Context)
}

func TestProjectStatusRuntimeUpdatesTrackerWhenConfigured(t *testing.T) {
	tracker := &fakeTracker{}
	rt := NewProjectStatus(ProjectStatusConfig{
		Tracker:     tracker,
		Owner:       "acme",
		Repo:        "core",
		IssueNumber: func(*graph.WorkflowState) int { return 7 },
		Status:      func(*graph.WorkflowState) string { return "Done" },
	}, graph.Literal(graph.End))

	res, err := rt.Execute(context.Background(), graph.NewState("SET_DONE_STATUS", nil))
	require.NoError(t, err)
	stashed := res.Delta.Context[StashProjectResult].(map[string]any)
	assert.Equal(t, true, stashed["success"])
	assert.Equal(t, 7, tracker.lastStatus.IssueNumber)
	assert.Equal(t, "Done", tracker.lastStatus.Status)
}

func TestCommentRuntimeStashesFailureWithoutError(t *testing.T) {
	rest := &fakeIssueREST{postCommentErr: errors.New("rate limited")}
	rt := NewComment(CommentConfig{
		IssueREST:   rest,
		IssueNumber: func(*graph.WorkflowState) int { return 1 },
		Body:        func(*graph.WorkflowState) string { return "done" },
	}, graph.Literal(graph.End))

	res, err := rt.Execute(context.Background(), graph.NewState("REPORT", nil))
	require.NoError(t, err)
	stashed := res.Delta.Context[StashCommentResult].(map[string]any)
	assert.Equal(t, false, stashed["success"])
}

func TestPRVisualizerRuntimeUpsertsAndMarksReady(t *testing.T) {
	rest := &fakeIssueREST{prBody: "hello"}
	rt := NewPRVisualizer(PRVisualizerConfig{
		IssueREST: rest,
		PRNumber:  func(*graph.WorkflowState) int { return 42 },
		MarkerID:  func(*graph.WorkflowState) string { return "run-1" },
		Render:    func(*graph.WorkflowState) string { return "dashboard" },
		MarkReady: true,
	}, graph.Literal(graph.End))

	res, err := rt.Execute(context.Background(), graph.NewState("WRITE_FINAL_PR", nil))
	require.NoError(t, err)
	stashed := res.Delta.Context[StashPRVisualizerResult].(map[string]any)
	assert.Equal(t, true, stashed["success"])
	assert.Contains(t, rest.updatePRBody, "dashboard")
	assert.Equal(t, 1, rest.markReadyCalls)
}

func TestPRVisualizerRuntimeTreatsMissingCurrentBodyAsEmpty(t *testing.T) {
	rest := &fakeIssueREST{getPRBodyErr: errors.New("not found")}
	rt := NewPRVisualizer(PRVisualizerConfig{
		IssueREST: rest,
		PRNumber:  func(*graph.WorkflowState) int { return 1 },
		MarkerID:  func(*graph.WorkflowState) string { return "run-1" },
		Render:    func(*graph.WorkflowState) string { return "dashboard" },
	}, graph.Literal(graph.End))

	_, err := rt.Execute(context.Background(), graph.NewState("WRITE_PR_STATUS", nil))
	require.NoError(t, err)
	assert.Equal(t, "dashboard", extractBetweenMarkers(rest.updatePRBody))
}

func extractBetweenMarkers(body string) string {
	_, after, ok := strings.Cut(body, "-->\n")
	if !ok {
		return body
	}
	before, _, ok := strings.Cut(after, "\n<!--")
	if !ok {
		return after
	}
	return before
}
