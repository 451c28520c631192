package ghclient

import (
	"context"
	"strings"
	"testing"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers each Run call by matching argv against a substring
// key, returning the corresponding canned stdout. Grounded on the
// issueprocessor package's stubRunner, extended to vary output by command.
type scriptedRunner struct {
	responses map[string]string
	calls     [][]string
}

func (r *scriptedRunner) Run(_ context.Context, argv []string, _ execx.Opts) (execx.Result, error) {
	r.calls = append(r.calls, argv)
	joined := strings.Join(argv, " ")
	for substr, stdout := range r.responses {
		if strings.Contains(joined, substr) {
			return execx.Result{Stdout: stdout, Success: true}, nil
		}
	}
	return execx.Result{Success: true}, nil
}

func TestRepoFlagJoinsOwnerAndRepo(t *testing.T) {
	assert.Equal(t, "acme/widgets", repoFlag("acme", "widgets"))
}

func TestRunReturnsNoErrorOnSuccessfulExit(t *testing.T) {
	runner := &scriptedRunner{}
	c := New(runner)
	runner.responses = nil

	_, err := c.run(context.Background(), "issue", "view", "1")
	require.NoError(t, err)
}

func TestRunJSONSurfacesUnmarshalError(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{"issue view": "not json"}}
	c := New(runner)

	var out struct{ Number int }
	err := c.runJSON(context.Background(), &out, "issue", "view", "1")
	assert.Error(t, err)
}

func TestRunJSONToleratesEmptyOutput(t *testing.T) {
	runner := &scriptedRunner{}
	c := New(runner)

	var out struct{ Number int }
	err := c.runJSON(context.Background(), &out, "pr", "ready", "1")
	require.NoError(t, err)
}

func TestGetIssueParsesLabelsAndFields(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{
		"issue view": `{"number":7,"title":"fix it","body":"details","state":"OPEN","labels":[{"name":"bug"}],"url":"https://github.com/acme/widgets/issues/7"}`,
	}}
	c := New(runner)

	issue, err := c.GetIssue(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, issue.Number)
	assert.Equal(t, "fix it", issue.Title)
	assert.Equal(t, []string{"bug"}, issue.Labels)
	assert.Equal(t, "acme", issue.Owner)
	assert.Equal(t, "widgets", issue.Repo)
}

func TestListOpenIssuesByLabelIncludesLabelFlagOnlyWhenSet(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{"issue list": `[]`}}
	c := New(runner)

	_, err := c.ListOpenIssuesByLabel(context.Background(), "acme", "widgets", "")
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(runner.calls[0], " "), "--label")

	_, err = c.ListOpenIssuesByLabel(context.Background(), "acme", "widgets", "automation")
	require.NoError(t, err)
	assert.Contains(t, strings.Join(runner.calls[1], " "), "--label automation")
}

func TestListSubIssuesParsesGraphQLResponse(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{
		"graphql": `{"data":{"repository":{"issue":{"subIssues":{"nodes":[{"number":8,"state":"OPEN"},{"number":9,"state":"CLOSED"}]}}}}}`,
	}}
	c := New(runner)

	refs, err := c.ListSubIssues(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, 8, refs[0].Number)
	assert.Equal(t, "CLOSED", refs[1].State)
}

func TestGetPRBodyReturnsBodyField(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]string{"pr view": `{"body":"## Dashboard"}`}}
	c := New(runner)

	body, err := c.GetPRBody(context.Background(), "acme", "widgets", 3)
	require.NoError(t, err)
	assert.Equal(t, "## Dashboard", body)
}

func TestMarkPRReadySucceedsOnSuccessfulExit(t *testing.T) {
	runner := &scriptedRunner{}
	c := New(runner)

	err := c.MarkPRReady(context.Background(), "acme", "widgets", 3)
	require.NoError(t, err)
}
