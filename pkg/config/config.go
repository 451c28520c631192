// Package config provides configuration loading, validation, and
// environment access for the graph engine: which LLM models are
// available and how they're rate-limited/budgeted, resilience policy for
// provider calls, and the handful of engine-wide settings (state
// directory, dispatch concurrency) a workflow run needs at startup.
//
// KEY PRINCIPLES:
//
//  1. CONSTANTS VS CONFIG: hardcoded algorithm parameters (retry backoff
//     shape, channel sizing) live as constants; anything an operator might
//     reasonably override (which model, how many concurrent dispatches,
//     where state lives) lives in Config and can be set from a YAML file
//     or environment variables.
//  2. GLOBAL SINGLETON: a single global Config is held in memory behind a
//     mutex, set once by Load and read thereafter by value.
//  3. VALUE-BASED ACCESS: Get returns Config by value so callers can't
//     mutate the shared instance by reference.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iota-uz/foundry/pkg/logx"
)

//nolint:gochecknoglobals // intentional singleton for process-wide config
var (
	current *Config
	mu      sync.RWMutex
)

// Model name constants.
const (
	ModelClaudeSonnet4      = "claude-sonnet-4-20250514"
	ModelClaudeSonnet3      = "claude-3-7-sonnet-20250219"
	ModelClaudeSonnetLatest = ModelClaudeSonnet4
	ModelOpenAIO3           = "o3"
	ModelOpenAIO3Mini       = "o3-mini"
	ModelOpenAIO3Latest     = ModelOpenAIO3
	ModelGPT5               = "gpt-5"
	ModelGeminiPro          = "gemini-2.5-pro"
	ModelOllamaLlama3       = "llama3.3"

	DefaultCoderModel     = ModelClaudeSonnet4
	DefaultArchitectModel = ModelOpenAIO3Mini
)

// Provider constants for middleware rate limiting and API key lookup.
const (
	ProviderAnthropic      = "anthropic"
	ProviderOpenAI         = "openai"
	ProviderOpenAIOfficial = "openai_official"
	ProviderGemini         = "gemini"
	ProviderOllama         = "ollama"
)

// API key environment variable names.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvGitHubToken     = "GITHUB_TOKEN"
)

// System behavior constants — fixed algorithm parameters, not
// user-configurable.
const (
	GracefulShutdownTimeoutSec = 30
	StoryChannelFactor         = 16  // dispatch queue buffer factor: factor × MaxConcurrent
	RateLimitBufferFactor      = 0.9 // safety margin applied to configured tokens-per-minute
	SchemaVersion              = "1.0"
)

// Model describes one LLM model's rate limit and budget policy.
type Model struct {
	Name           string  `yaml:"name"`
	MaxTPM         int     `yaml:"max_tpm"`
	MaxConnections int     `yaml:"max_connections"`
	CPM            float64 `yaml:"cpm"`          // cost per million tokens (USD)
	DailyBudget    float64 `yaml:"daily_budget"` // max spend per day (USD)
}

// ModelDefaults defines default parameters for every model the registry
// knows how to route requests to.
//
//nolint:gochecknoglobals // intentional global for model defaults
var ModelDefaults = map[string]Model{
	ModelClaudeSonnet3: {Name: ModelClaudeSonnet3, MaxTPM: 300000, MaxConnections: 5, CPM: 3.0, DailyBudget: 10.0},
	ModelClaudeSonnet4: {Name: ModelClaudeSonnet4, MaxTPM: 3000000, MaxConnections: 5, CPM: 3.0, DailyBudget: 10.0},
	ModelOpenAIO3Mini:  {Name: ModelOpenAIO3Mini, MaxTPM: 100000, MaxConnections: 3, CPM: 0.6, DailyBudget: 5.0},
	ModelOpenAIO3:      {Name: ModelOpenAIO3, MaxTPM: 100000, MaxConnections: 3, CPM: 0.6, DailyBudget: 5.0},
	ModelGPT5:          {Name: ModelGPT5, MaxTPM: 150000, MaxConnections: 5, CPM: 30.0, DailyBudget: 100.0},
	ModelGeminiPro:     {Name: ModelGeminiPro, MaxTPM: 300000, MaxConnections: 5, CPM: 1.25, DailyBudget: 10.0},
	ModelOllamaLlama3:  {Name: ModelOllamaLlama3, MaxTPM: 0, MaxConnections: 8, CPM: 0, DailyBudget: 0}, // local, unmetered
}

// ModelProviders maps each model to the provider whose API key/client
// serves it. Immutable, not user-configurable.
//
//nolint:gochecknoglobals // intentional global for model-to-provider mapping
var ModelProviders = map[string]string{
	ModelClaudeSonnet3: ProviderAnthropic,
	ModelClaudeSonnet4: ProviderAnthropic,
	ModelOpenAIO3:      ProviderOpenAI,
	ModelOpenAIO3Mini:  ProviderOpenAIOfficial,
	ModelGPT5:          ProviderOpenAIOfficial,
	ModelGeminiPro:     ProviderGemini,
	ModelOllamaLlama3:  ProviderOllama,
}

// IsModelSupported reports whether ModelDefaults has an entry for name.
func IsModelSupported(name string) bool {
	_, ok := ModelDefaults[name]
	return ok
}

// GetModelProvider returns the API provider responsible for name.
func GetModelProvider(name string) (string, error) {
	provider, ok := ModelProviders[name]
	if !ok {
		return "", fmt.Errorf("unknown model: %s", name)
	}
	return provider, nil
}

// CircuitBreakerConfig bounds a provider client's circuit breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// RetryConfig bounds a provider client's retry policy.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// ProviderLimits bounds one provider's rate limit.
type ProviderLimits struct {
	TokensPerMinute int `yaml:"tokens_per_minute"`
	Burst           int `yaml:"burst"`
	MaxConcurrency  int `yaml:"max_concurrency"`
}

// RateLimitConfig groups rate limits by provider.
type RateLimitConfig struct {
	Anthropic      ProviderLimits `yaml:"anthropic"`
	OpenAI         ProviderLimits `yaml:"openai"`
	OpenAIOfficial ProviderLimits `yaml:"openai_official"`
	Gemini         ProviderLimits `yaml:"gemini"`
}

// ResilienceConfig bundles the middleware policy every provider client is
// wrapped in (see internal/providers.ResilientClient).
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Retry          RetryConfig          `yaml:"retry"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Timeout        time.Duration        `yaml:"timeout"`
}

// EngineConfig bounds a single graph-engine invocation: where run state
// and the audit index live, and the dispatch pass's concurrency cap.
type EngineConfig struct {
	StateDir      string `yaml:"state_dir"`
	RunIndexPath  string `yaml:"run_index_path"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	MaxRetries    int    `yaml:"max_retries"`
	DryRun        bool   `yaml:"dry_run"`
}

// AgentConfig names which models drive the architect/coder roles and
// bounds their retry behavior.
type AgentConfig struct {
	CoderModel     string           `yaml:"coder_model"`
	ArchitectModel string           `yaml:"architect_model"`
	MaxFixAttempts int              `yaml:"max_fix_attempts"`
	Resilience     ResilienceConfig `yaml:"resilience"`
}

// Config is the complete graph-engine configuration: which models are
// available, how agent roles use them, resilience policy, and engine-wide
// run settings. Loaded once via Load and held as the process singleton.
type Config struct {
	SchemaVersion string           `yaml:"schema_version"`
	Models        map[string]Model `yaml:"models"`
	Agents        AgentConfig      `yaml:"agents"`
	Engine        EngineConfig     `yaml:"engine"`
}

// Get returns the current global config by value. Must call Load first.
func Get() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return Config{}, fmt.Errorf("config not initialized - call Load first")
	}
	return *current, nil
}

// Load reads a YAML config file at path, applies defaults for anything
// left unset, validates it, and installs it as the global singleton. A
// missing file is not an error: Load falls back to DefaultConfig().
func Load(path string) error {
	mu.Lock()
	defer mu.Unlock()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	current = &cfg
	return nil
}

// DefaultConfig returns a Config seeded from ModelDefaults with
// conservative agent and resilience settings.
func DefaultConfig() Config {
	models := make(map[string]Model, len(ModelDefaults))
	for name, m := range ModelDefaults {
		models[name] = m
	}

	return Config{
		SchemaVersion: SchemaVersion,
		Models:        models,
		Agents: AgentConfig{
			CoderModel:     DefaultCoderModel,
			ArchitectModel: DefaultArchitectModel,
			MaxFixAttempts: 3,
			Resilience: ResilienceConfig{
				CircuitBreaker: CircuitBreakerConfig{
					FailureThreshold: 5,
					SuccessThreshold: 3,
					Timeout:          30 * time.Second,
				},
				Retry: RetryConfig{
					MaxAttempts:   3,
					InitialDelay:  100 * time.Millisecond,
					MaxDelay:      10 * time.Second,
					BackoffFactor: 2.0,
					Jitter:        true,
				},
				RateLimit: RateLimitConfig{
					Anthropic: ProviderLimits{TokensPerMinute: 300000, Burst: 10000, MaxConcurrency: 5},
					OpenAI:    ProviderLimits{TokensPerMinute: 100000, Burst: 5000, MaxConcurrency: 3},
				},
				Timeout: 3 * time.Minute,
			},
		},
		Engine: EngineConfig{
			StateDir:      ".foundry/runs",
			RunIndexPath:  ".foundry/runs.db",
			MaxConcurrent: 4,
			MaxRetries:    0,
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SchemaVersion
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultConfig().Models
	}
	if cfg.Agents.CoderModel == "" {
		cfg.Agents.CoderModel = DefaultCoderModel
	}
	if cfg.Agents.ArchitectModel == "" {
		cfg.Agents.ArchitectModel = DefaultArchitectModel
	}
	if cfg.Agents.MaxFixAttempts <= 0 {
		cfg.Agents.MaxFixAttempts = 3
	}
	if cfg.Agents.Resilience.CircuitBreaker.FailureThreshold == 0 {
		cfg.Agents.Resilience.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.Agents.Resilience.CircuitBreaker.SuccessThreshold == 0 {
		cfg.Agents.Resilience.CircuitBreaker.SuccessThreshold = 3
	}
	if cfg.Agents.Resilience.CircuitBreaker.Timeout == 0 {
		cfg.Agents.Resilience.CircuitBreaker.Timeout = 30 * time.Second
	}
	if cfg.Agents.Resilience.Retry.MaxAttempts == 0 {
		cfg.Agents.Resilience.Retry.MaxAttempts = 3
	}
	if cfg.Agents.Resilience.Retry.BackoffFactor == 0 {
		cfg.Agents.Resilience.Retry.BackoffFactor = 2.0
	}
	if cfg.Agents.Resilience.Timeout == 0 {
		cfg.Agents.Resilience.Timeout = 3 * time.Minute
	}
	if cfg.Engine.StateDir == "" {
		cfg.Engine.StateDir = ".foundry/runs"
	}
	if cfg.Engine.RunIndexPath == "" {
		cfg.Engine.RunIndexPath = ".foundry/runs.db"
	}
	if cfg.Engine.MaxConcurrent <= 0 {
		cfg.Engine.MaxConcurrent = 4
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.Models) == 0 {
		return fmt.Errorf("no models configured")
	}
	for name, m := range cfg.Models {
		if m.MaxTPM < 0 {
			return fmt.Errorf("model %s: max_tpm cannot be negative", name)
		}
		if m.CPM < 0 {
			return fmt.Errorf("model %s: cpm cannot be negative", name)
		}
		if m.DailyBudget < 0 {
			return fmt.Errorf("model %s: daily_budget cannot be negative", name)
		}
	}
	if !IsModelSupported(cfg.Agents.CoderModel) {
		return fmt.Errorf("coder_model %q is not a supported model", cfg.Agents.CoderModel)
	}
	if !IsModelSupported(cfg.Agents.ArchitectModel) {
		return fmt.Errorf("architect_model %q is not a supported model", cfg.Agents.ArchitectModel)
	}
	if cfg.Engine.MaxConcurrent < 0 {
		return fmt.Errorf("engine.max_concurrent cannot be negative")
	}
	return nil
}

// GetAPIKey returns the API key for provider from environment variables.
func GetAPIKey(provider string) (string, error) {
	var envVar string
	switch provider {
	case ProviderAnthropic:
		envVar = EnvAnthropicAPIKey
	case ProviderOpenAI, ProviderOpenAIOfficial:
		envVar = EnvOpenAIAPIKey
	case ProviderGemini:
		envVar = EnvGeminiAPIKey
	case ProviderOllama:
		if host := os.Getenv(EnvOllamaHost); host != "" {
			return host, nil
		}
		return "", nil // ollama has no API key requirement by default
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s not found in environment variables", envVar)
	}
	return key, nil
}

// GetGitHubToken returns the GitHub token from the environment.
func GetGitHubToken() string {
	return os.Getenv(EnvGitHubToken)
}

// HasGitHubToken reports whether a GitHub token is available.
func HasGitHubToken() bool {
	return GetGitHubToken() != ""
}

// ValidateAPIKeysForConfig checks that the API keys required by the
// configured coder/architect models are present in the environment.
func ValidateAPIKeysForConfig() error {
	cfg, err := Get()
	if err != nil {
		return fmt.Errorf("configuration not loaded: %w", err)
	}

	required := make(map[string]bool)
	for _, model := range []string{cfg.Agents.CoderModel, cfg.Agents.ArchitectModel} {
		provider, err := GetModelProvider(model)
		if err != nil {
			return fmt.Errorf("resolve provider for model %s: %w", model, err)
		}
		required[provider] = true
	}

	for provider := range required {
		if provider == ProviderOllama {
			continue // no key required
		}
		if _, err := GetAPIKey(provider); err != nil {
			return fmt.Errorf("missing API key for provider %s: %w", provider, err)
		}
	}
	return nil
}

// CalculateCost returns the USD cost of a completion for modelName given
// its configured CPM (cost per million tokens).
func CalculateCost(modelName string, promptTokens, completionTokens int) (float64, error) {
	cfg, err := Get()
	if err != nil {
		return 0, err
	}
	model, ok := cfg.Models[modelName]
	if !ok {
		return 0, fmt.Errorf("model %q not found in config", modelName)
	}
	totalTokens := float64(promptTokens + completionTokens)
	return (totalTokens / 1_000_000.0) * model.CPM, nil
}

// CheckToolAvailable checks whether toolName is on the system PATH. Used
// at startup to fail fast when gh or git is missing.
func CheckToolAvailable(toolName string) error {
	if _, err := exec.LookPath(toolName); err != nil {
		return fmt.Errorf("command %s not found: %w", toolName, err)
	}
	return nil
}

// ValidateExternalTools checks that git and gh are reachable on PATH,
// logging each result.
func ValidateExternalTools() error {
	var missing []string
	for _, tool := range []string{"git", "gh"} {
		if err := CheckToolAvailable(tool); err != nil {
			missing = append(missing, tool)
		} else {
			logx.Debugf("tool check: %s available", tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}
