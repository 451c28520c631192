// Command graph-engine drives a single tracked issue through the
// analyze-plan-implement-test-finalize workflow, or resolves a batch of
// tracked issues into a dispatch matrix for a CI fan-out step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/iota-uz/foundry/internal/dispatch"
	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/internal/ghclient"
	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/issueprocessor"
	"github.com/iota-uz/foundry/internal/metrics"
	"github.com/iota-uz/foundry/internal/nodes"
	"github.com/iota-uz/foundry/internal/providers"
	"github.com/iota-uz/foundry/pkg/config"
	"github.com/iota-uz/foundry/pkg/logx"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runIssue(os.Args[2:])
	case "dispatch":
		runDispatch(os.Args[2:])
	case "runs":
		runRuns(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `graph-engine: declarative workflow engine for tracked-issue automation

Usage:
  graph-engine run [flags] <config.yaml>       run the issue-processor workflow for one issue
  graph-engine dispatch [flags] <config.yaml>  resolve a batch of issues into a dispatch matrix
  graph-engine runs list [flags] <config.yaml> list indexed runs
  graph-engine runs show [flags] <run-id> <config.yaml>

Environment:
  GITHUB_TOKEN, GITHUB_REPOSITORY      repository identity and auth for gh-backed trackers
  ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, OLLAMA_HOST  provider credentials
  GRAPH_SOURCE, GRAPH_LABEL            dispatch fetch strategy ("label" or "project") and label
  GRAPH_PROJECT_OWNER, GRAPH_PROJECT_NUMBER, GRAPH_READY_STATUS, GRAPH_PRIORITY_FIELD
  GRAPH_MAX_CONCURRENT                 dispatch matrix size cap
  GRAPH_ISSUE_NUMBER, GRAPH_BASE_BRANCH, GRAPH_DONE_STATUS  single-issue run parameters
  GRAPH_OUTPUT_FILE, GITHUB_OUTPUT     where the dispatch matrix JSON is written`)
}

// commonFlags holds the flag set shared by every subcommand.
type commonFlags struct {
	configPath string
	verbose    bool
	metrics    bool
	metricsAddr string
}

func parseCommon(fs *flag.FlagSet, args []string) *commonFlags {
	cf := &commonFlags{}
	fs.BoolVar(&cf.verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&cf.verbose, "v", false, "enable debug logging (shorthand)")
	fs.BoolVar(&cf.metrics, "metrics", false, "serve Prometheus metrics while running")
	fs.StringVar(&cf.metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		cf.configPath = fs.Arg(fs.NArg() - 1)
	}
	if cf.verbose {
		logx.SetMinLevel(logx.LevelDebug)
	}
	return cf
}

// failf prints a user-visible failure summary, bolded when stderr is an
// interactive terminal and plain when it's redirected (CI logs, pipes).
func failf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintf(os.Stderr, "\033[1;31m%s\033[0m\n", msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

func loadConfig(path string) config.Config {
	if err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "get config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildRegistry constructs a provider Registry from every API key present
// in the environment, wrapping each client in the configured resilience
// and rate-limit policy. Providers with no key set are simply absent from
// the registry; Resolve then fails fast for any model that needs them.
func buildRegistry(ctx context.Context, cfg config.Config) *providers.Registry {
	registry := providers.NewRegistry()
	resilience := cfg.Agents.Resilience

	register := func(prefix, provider string, build func(apiKey string) (providers.LLMClient, error)) {
		apiKey, err := config.GetAPIKey(provider)
		if err != nil {
			logx.Debugf("provider %s: %v, skipping", provider, err)
			return
		}
		client, err := build(apiKey)
		if err != nil {
			logx.Warnf("provider %s: failed to construct client: %v", provider, err)
			return
		}

		wrapped := providers.ResilientClient(client, true, providers.CircuitBreakerConfig{
			FailureThreshold: resilience.CircuitBreaker.FailureThreshold,
			SuccessThreshold: resilience.CircuitBreaker.SuccessThreshold,
			Timeout:          resilience.CircuitBreaker.Timeout,
		})

		if limits := rateLimitFor(resilience, provider); limits.TokensPerMinute > 0 {
			limiter := providers.NewTokenBucketLimiter(provider, limits, resilience.Timeout, 5*time.Minute)
			limiter.StartRefillTimer(ctx)
			wrapped = providers.NewRateLimitedClient(wrapped, limiter)
		}

		registry.Register(prefix, wrapped)
	}

	register("claude-", config.ProviderAnthropic, func(k string) (providers.LLMClient, error) {
		return providers.NewClaudeClient(k), nil
	})
	register("gpt-", config.ProviderOpenAIOfficial, func(k string) (providers.LLMClient, error) {
		return providers.NewOpenAIClient(k), nil
	})
	register("o3", config.ProviderOpenAI, func(k string) (providers.LLMClient, error) {
		return providers.NewOpenAIClient(k), nil
	})
	register("gemini-", config.ProviderGemini, func(k string) (providers.LLMClient, error) {
		return providers.NewGeminiClient(ctx, k)
	})
	register("llama", config.ProviderOllama, func(k string) (providers.LLMClient, error) {
		return providers.NewOllamaClient(k), nil
	})

	return registry
}

func rateLimitFor(r config.ResilienceConfig, provider string) config.ProviderLimits {
	switch provider {
	case config.ProviderAnthropic:
		return r.RateLimit.Anthropic
	case config.ProviderOpenAI:
		return r.RateLimit.OpenAI
	case config.ProviderOpenAIOfficial:
		return r.RateLimit.OpenAIOfficial
	case config.ProviderGemini:
		return r.RateLimit.Gemini
	default:
		return config.ProviderLimits{}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec // internal metrics endpoint, no timeout config needed
			logx.Warnf("metrics server stopped: %v", err)
		}
	}()
	logx.Infof("serving metrics on %s/metrics", addr)
}

func runIssue(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cf := parseCommon(fs, args)
	if cf.configPath == "" {
		fmt.Fprintln(os.Stderr, "run: a workflow config path is required")
		os.Exit(1)
	}

	cfg := loadConfig(cf.configPath)

	ctx, cancel := signalContext()
	defer cancel()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	if cf.metrics {
		serveMetrics(cf.metricsAddr, reg)
	}

	registry := buildRegistry(ctx, cfg)
	llmClient, ok := registry.Resolve(cfg.Agents.CoderModel)
	if !ok {
		fmt.Fprintf(os.Stderr, "no provider client available for coder model %s\n", cfg.Agents.CoderModel)
		os.Exit(1)
	}

	gh := ghclient.New(execx.NewLocalRunner())

	issueNumber, _ := strconv.Atoi(os.Getenv("GRAPH_ISSUE_NUMBER"))
	owner, repo := splitRepository(os.Getenv("GITHUB_REPOSITORY"))

	runID := uuid.NewString()
	if issueNumber > 0 {
		runID = fmt.Sprintf("issue-%d", issueNumber)
	}

	var tracker providers.Tracker
	if owner, numStr := os.Getenv("GRAPH_PROJECT_OWNER"), os.Getenv("GRAPH_PROJECT_NUMBER"); owner != "" && numStr != "" {
		num, _ := strconv.Atoi(numStr)
		tracker = ghclient.NewProjectsClient(gh, owner, num)
	}

	procCfg := issueprocessor.Config{
		RunID:          runID,
		Owner:          owner,
		Repo:           repo,
		IssueNumber:    issueNumber,
		BaseBranch:     os.Getenv("GRAPH_BASE_BRANCH"),
		Model:          cfg.Agents.CoderModel,
		MaxFixAttempts: cfg.Agents.MaxFixAttempts,
		ActionsRunURL:  os.Getenv("GRAPH_ACTIONS_RUN_URL"),
		ProjectOwner:   os.Getenv("GRAPH_PROJECT_OWNER"),
		DoneStatus:     os.Getenv("GRAPH_DONE_STATUS"),
		Tracker:        tracker,
		IssueREST:      gh,
		CleanupBranch:  os.Getenv("GRAPH_CLEANUP_BRANCH") == "true",
	}

	backends := nodes.Backends{
		Runner:     execx.NewLocalRunner(),
		LLM:        llmClient,
		Agent:      providers.NewLLMAgentRunner(registry, cfg.Agents.CoderModel),
		GitBaseDir: os.Getenv("GRAPH_WORKDIR"),
		GitToken:   config.GetGitHubToken(),
	}

	schemaConfig, table, err := issueprocessor.Build(procCfg, backends)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build workflow: %v\n", err)
		os.Exit(1)
	}

	store, err := graph.NewFileStore(cfg.Engine.StateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open state store: %v\n", err)
		os.Exit(1)
	}

	engine := graph.NewEngine(schemaConfig, table, store, graph.EngineConfig{
		StateDir:   cfg.Engine.StateDir,
		MaxRetries: cfg.Engine.MaxRetries,
	}).WithObserver(recorder)

	if idx, err := graph.OpenRunIndex(cfg.Engine.RunIndexPath); err != nil {
		logx.Warnf("run index unavailable: %v", err)
	} else {
		defer idx.Close()
		engine = engine.WithRunIndex(idx)
	}

	state, err := engine.Run(ctx, procCfg.RunID)
	if err != nil {
		failf("run %s failed: %v", procCfg.RunID, err)
		os.Exit(1)
	}

	fmt.Printf("run %s finished at node %s, status %s\n", procCfg.RunID, state.CurrentNode, state.Status)
	if state.Status == graph.StatusFailed {
		os.Exit(1)
	}
}

func runDispatch(args []string) {
	fs := flag.NewFlagSet("dispatch", flag.ExitOnError)
	cf := parseCommon(fs, args)
	if cf.configPath == "" {
		fmt.Fprintln(os.Stderr, "dispatch: a workflow config path is required")
		os.Exit(1)
	}

	cfg := loadConfig(cf.configPath)
	ctx, cancel := signalContext()
	defer cancel()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	if cf.metrics {
		serveMetrics(cf.metricsAddr, reg)
	}

	gh := ghclient.New(execx.NewLocalRunner())
	owner, repo := splitRepository(os.Getenv("GITHUB_REPOSITORY"))

	projectNumber, _ := strconv.Atoi(os.Getenv("GRAPH_PROJECT_NUMBER"))
	tracker := ghclient.NewProjectsClient(gh, os.Getenv("GRAPH_PROJECT_OWNER"), projectNumber)

	maxConcurrent := cfg.Engine.MaxConcurrent
	if v := os.Getenv("GRAPH_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxConcurrent = n
		}
	}

	resolveCfg := dispatch.ResolveConfig{
		Fetch: dispatch.FetchConfig{
			Source:        dispatch.SourceType(envOr("GRAPH_SOURCE", string(dispatch.SourceLabel))),
			Owner:         owner,
			Repo:          repo,
			Label:         os.Getenv("GRAPH_LABEL"),
			ProjectOwner:  os.Getenv("GRAPH_PROJECT_OWNER"),
			ProjectNumber: projectNumber,
			ReadyStatus:   os.Getenv("GRAPH_READY_STATUS"),
			PriorityField: os.Getenv("GRAPH_PRIORITY_FIELD"),
		},
		MaxConcurrent: maxConcurrent,
	}

	result, err := dispatch.Run(ctx, resolveCfg, gh, tracker)
	if err != nil {
		failf("dispatch: %v", err)
		os.Exit(1)
	}
	recorder.ObserveDispatch(len(result.Ready), len(result.Blocked), len(result.Matrix.Include))

	data, err := json.Marshal(result.Matrix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal matrix: %v\n", err)
		os.Exit(1)
	}

	dryRun := cfg.Engine.DryRun || os.Getenv("GRAPH_DRY_RUN") == "true"
	if dryRun {
		logx.Infof("dry run: would emit matrix %s", data)
	} else if err := writeMatrixOutput(data); err != nil {
		fmt.Fprintf(os.Stderr, "write matrix output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("dispatch: %d ready, %d blocked, %d cycles, %d emitted\n",
		len(result.Ready), len(result.Blocked), len(result.Cycles), len(result.Matrix.Include))
}

func writeMatrixOutput(data []byte) error {
	written := false
	if path := os.Getenv("GRAPH_OUTPUT_FILE"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		written = true
	}
	if path := os.Getenv("GITHUB_OUTPUT"); path != "" && os.Getenv("GITHUB_ACTIONS") == "true" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open GITHUB_OUTPUT: %w", err)
		}
		defer f.Close()
		if _, err := fmt.Fprintf(f, "matrix=%s\n", data); err != nil {
			return err
		}
		written = true
	}
	if !written {
		fmt.Println(string(data))
	}
	return nil
}

func runRuns(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "runs: expected \"list\" or \"show\"")
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		runRunsList(args[1:])
	case "show":
		runRunsShow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "runs: unknown subcommand %q\n", args[0])
		os.Exit(1)
	}
}

func runRunsList(args []string) {
	fs := flag.NewFlagSet("runs list", flag.ExitOnError)
	cf := parseCommon(fs, args)
	cfg := loadConfig(cf.configPath)

	idx, err := graph.OpenRunIndex(cfg.Engine.RunIndexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open run index: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	runs, err := idx.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list runs: %v\n", err)
		os.Exit(1)
	}

	for _, r := range runs {
		fmt.Printf("%s\t%s\t%s\t%s\tupdated %s\n", r.ID, r.WorkflowID, r.CurrentNode, r.Status, r.UpdatedAt.Format(time.RFC3339))
	}
}

func runRunsShow(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "runs show: a run id is required")
		os.Exit(1)
	}
	runID := args[0]

	fs := flag.NewFlagSet("runs show", flag.ExitOnError)
	cf := parseCommon(fs, args[1:])
	cfg := loadConfig(cf.configPath)

	idx, err := graph.OpenRunIndex(cfg.Engine.RunIndexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open run index: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	summary, found, err := idx.Show(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "show run: %v\n", err)
		os.Exit(1)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "run %s not found\n", runID)
		os.Exit(1)
	}

	data, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(data))
}

func splitRepository(full string) (owner, repo string) {
	for i := 0; i < len(full); i++ {
		if full[i] == '/' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
