package ghclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iota-uz/foundry/internal/providers"
)

// Client implements providers.IssueREST.
var _ providers.IssueREST = (*Client)(nil)

type ghLabel struct {
	Name string `json:"name"`
}

type ghIssue struct {
	Number int       `json:"number"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	State  string    `json:"state"`
	Labels []ghLabel `json:"labels"`
	URL    string    `json:"url"`
}

func toIssue(owner, repo string, r ghIssue) providers.Issue {
	labels := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		labels = append(labels, l.Name)
	}
	return providers.Issue{
		Number: r.Number,
		Title:  r.Title,
		Body:   r.Body,
		State:  r.State,
		Labels: labels,
		Owner:  owner,
		Repo:   repo,
		URL:    r.URL,
	}
}

const issueJSONFields = "number,title,body,state,labels,url"

func (c *Client) ListOpenIssuesByLabel(ctx context.Context, owner, repo, label string) ([]providers.Issue, error) {
	args := []string{"issue", "list", "--repo", repoFlag(owner, repo), "--state", "open", "--json", issueJSONFields, "--limit", "200"}
	if label != "" {
		args = append(args, "--label", label)
	}
	var raw []ghIssue
	if err := c.runJSON(ctx, &raw, args...); err != nil {
		return nil, err
	}
	issues := make([]providers.Issue, 0, len(raw))
	for _, r := range raw {
		issues = append(issues, toIssue(owner, repo, r))
	}
	return issues, nil
}

func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (providers.Issue, error) {
	args := []string{"issue", "view", strconv.Itoa(number), "--repo", repoFlag(owner, repo), "--json", issueJSONFields}
	var raw ghIssue
	if err := c.runJSON(ctx, &raw, args...); err != nil {
		return providers.Issue{}, err
	}
	return toIssue(owner, repo, raw), nil
}

const subIssuesQuery = `query($owner: String!, $repo: String!, $number: Int!) {
  repository(owner: $owner, name: $repo) {
    issue(number: $number) {
      subIssues(first: 100) {
        nodes { number state }
      }
    }
  }
}`

func (c *Client) ListSubIssues(ctx context.Context, owner, repo string, number int) ([]providers.SubIssueRef, error) {
	var resp struct {
		Data struct {
			Repository struct {
				Issue struct {
					SubIssues struct {
						Nodes []struct {
							Number int    `json:"number"`
							State  string `json:"state"`
						} `json:"nodes"`
					} `json:"subIssues"`
				} `json:"issue"`
			} `json:"repository"`
		} `json:"data"`
	}
	err := c.graphQL(ctx, &resp, subIssuesQuery,
		map[string]string{"owner": owner, "repo": repo},
		map[string]string{"number": strconv.Itoa(number)})
	if err != nil {
		return nil, err
	}
	nodes := resp.Data.Repository.Issue.SubIssues.Nodes
	refs := make([]providers.SubIssueRef, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, providers.SubIssueRef{Number: n.Number, State: n.State})
	}
	return refs, nil
}

func (c *Client) PostComment(ctx context.Context, owner, repo string, number int, body string) error {
	args := []string{"issue", "comment", strconv.Itoa(number), "--repo", repoFlag(owner, repo), "--body", body}
	_, err := c.run(ctx, args...)
	return err
}

func (c *Client) GetPRBody(ctx context.Context, owner, repo string, number int) (string, error) {
	args := []string{"pr", "view", strconv.Itoa(number), "--repo", repoFlag(owner, repo), "--json", "body"}
	var resp struct {
		Body string `json:"body"`
	}
	if err := c.runJSON(ctx, &resp, args...); err != nil {
		return "", err
	}
	return resp.Body, nil
}

func (c *Client) UpdatePRBody(ctx context.Context, owner, repo string, number int, body string) error {
	args := []string{"pr", "edit", strconv.Itoa(number), "--repo", repoFlag(owner, repo), "--body", body}
	_, err := c.run(ctx, args...)
	return err
}

func (c *Client) MarkPRReady(ctx context.Context, owner, repo string, number int) error {
	args := []string{"pr", "ready", strconv.Itoa(number), "--repo", repoFlag(owner, repo)}
	_, err := c.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("ghclient: mark PR #%d ready: %w", number, err)
	}
	return nil
}
