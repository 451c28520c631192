package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/internal/graph"
)

const (
	gitCheckoutTimeout = 120 * time.Second
	workDirContextKey  = "workDir"
)

// gitCheckoutResult is the shape stashed into context, and mirrored at the
// canonical workDir key for downstream nodes.
type gitCheckoutResult struct {
	WorkDir string `json:"workDir"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Ref     string `json:"ref"`
	SHA     string `json:"sha"`
}

// gitCheckoutRuntime clones (or reuses) a repository checkout.
type gitCheckoutRuntime struct {
	name    string
	cfg     *graph.GitCheckoutConfig
	then    graph.Then
	runner  execx.Runner
	baseDir string
	token   string // access token used to build the clone URL
}

// NewGitCheckout builds the Runtime for a GitCheckout node. baseDir is
// where per-run checkouts are rooted; token authenticates the clone URL.
func NewGitCheckout(name string, cfg *graph.GitCheckoutConfig, then graph.Then, runner execx.Runner, baseDir, token string) graph.Runtime {
	return &gitCheckoutRuntime{name: name, cfg: cfg, then: then, runner: runner, baseDir: baseDir, token: token}
}

func (r *gitCheckoutRuntime) Kind() graph.Kind { return graph.KindGitCheckout }

func (r *gitCheckoutRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	owner := r.cfg.Owner
	repo := r.cfg.Repo
	if r.cfg.UseIssueContext {
		if o := state.Context.GetString("projectOwner"); o != "" {
			owner = o
		}
		if rp := state.Context.GetString("repository"); rp != "" {
			if parts := strings.SplitN(rp, "/", 2); len(parts) == 2 {
				owner, repo = parts[0], parts[1]
			}
		}
	}
	if owner == "" || repo == "" {
		return graph.ExecResult{}, &graph.NodeExecutionError{
			NodeName: r.name, NodeKind: string(graph.KindGitCheckout),
			Cause: fmt.Errorf("git checkout requires owner and repo"),
		}
	}

	workDir := filepath.Join(r.baseDir, owner, repo)
	skipIfExists := true
	if r.cfg.SkipIfExists != nil {
		skipIfExists = *r.cfg.SkipIfExists
	}

	if _, err := os.Stat(workDir); err == nil && skipIfExists {
		sha, shaErr := r.revParse(ctx, workDir)
		if shaErr != nil {
			return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindGitCheckout), Cause: shaErr}
		}
		return r.result(workDir, owner, repo, r.cfg.Ref, sha), nil
	}

	if err := os.MkdirAll(filepath.Dir(workDir), 0o755); err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindGitCheckout), Cause: err}
	}
	_ = os.RemoveAll(workDir)

	cloneURL := fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", r.token, owner, repo)
	depth := r.cfg.Depth
	if depth <= 0 {
		depth = 1
	}

	cloneArgv := []string{"git", "clone", "--depth", fmt.Sprintf("%d", depth), cloneURL, workDir}
	if _, err := r.run(ctx, cloneArgv, ""); err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindGitCheckout), Cause: err}
	}

	if r.cfg.Ref != "" {
		if _, err := r.run(ctx, []string{"git", "checkout", r.cfg.Ref}, workDir); err != nil {
			return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindGitCheckout), Cause: err}
		}
	}

	sha, err := r.revParse(ctx, workDir)
	if err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindGitCheckout), Cause: err}
	}

	return r.result(workDir, owner, repo, r.cfg.Ref, sha), nil
}

func (r *gitCheckoutRuntime) revParse(ctx context.Context, workDir string) (string, error) {
	res, err := r.run(ctx, []string{"git", "rev-parse", "HEAD"}, workDir)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (r *gitCheckoutRuntime) run(ctx context.Context, argv []string, workDir string) (execx.Result, error) {
	res, err := r.runner.Run(ctx, argv, execx.Opts{
		WorkDir: workDir,
		Timeout: gitCheckoutTimeout,
	})
	if err != nil {
		return execx.Result{}, err
	}
	if !res.Success {
		return execx.Result{}, fmt.Errorf("%s failed: %s", strings.Join(argv, " "), res.Stderr)
	}
	return res, nil
}

func (r *gitCheckoutRuntime) result(workDir, owner, repo, ref, sha string) graph.ExecResult {
	key := resultKey(r.cfg.ResultKey, StashGitCheckoutResult)
	payload := gitCheckoutResult{WorkDir: workDir, Owner: owner, Repo: repo, Ref: ref, SHA: sha}
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{
			key:               payload,
			workDirContextKey: workDir,
		}},
	}
}

func (r *gitCheckoutRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
