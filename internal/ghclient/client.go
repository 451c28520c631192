// Package ghclient adapts the gh CLI to the providers.IssueREST and
// providers.Tracker boundaries: issue/PR REST operations shell out to
// `gh issue`/`gh pr` subcommands, and project-board operations (which gh
// has no first-class subcommand for) go through `gh api graphql`.
package ghclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/pkg/logx"
)

// Client runs gh CLI commands through an execx.Runner, so the same
// sandboxing/timeout machinery Command nodes use also governs GitHub calls.
type Client struct {
	runner  execx.Runner
	timeout time.Duration
	log     *logx.Logger
}

// New wraps runner (execx.NewLocalRunner() if nil) in a Client with a
// 30-second default per-command timeout.
func New(runner execx.Runner) *Client {
	if runner == nil {
		runner = execx.NewLocalRunner()
	}
	return &Client{runner: runner, timeout: 30 * time.Second, log: logx.With("component", "ghclient")}
}

// WithTimeout returns a copy of the client with a different per-command
// timeout, mirroring the longer timeout gh pr create/merge need.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.timeout = d
	return &cp
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.log.Debugf("gh %s", strings.Join(args, " "))
	res, err := c.runner.Run(ctx, append([]string{"gh"}, args...), execx.Opts{Timeout: c.timeout})
	if err != nil {
		return "", fmt.Errorf("ghclient: gh %s: %w", strings.Join(args, " "), err)
	}
	if !res.Success {
		return "", fmt.Errorf("ghclient: gh %s: exit %d: %s", strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

func (c *Client) runJSON(ctx context.Context, out any, args ...string) error {
	stdout, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(stdout) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		return fmt.Errorf("ghclient: parse response for gh %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (c *Client) graphQL(ctx context.Context, out any, query string, fields map[string]string, raw map[string]string) error {
	args := []string{"api", "graphql", "-f", "query=" + query}
	for k, v := range fields {
		args = append(args, "-f", fmt.Sprintf("%s=%s", k, v))
	}
	for k, v := range raw {
		args = append(args, "-F", fmt.Sprintf("%s=%s", k, v))
	}
	return c.runJSON(ctx, out, args...)
}

func repoFlag(owner, repo string) string { return owner + "/" + repo }
