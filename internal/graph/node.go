package graph

// Then is a transition predicate: given the post-execution state, it
// yields the next node name (or a sentinel). Per design note §9, this
// codebase always uses the function model — literal successors are simply
// predicates that ignore their argument and return a constant. There is no
// separate string-based transition type to keep in sync with this one.
type Then func(state *WorkflowState) string

// Literal builds a Then predicate that ignores the state and always
// returns name. This is the idiom for a node whose successor never
// depends on the outcome.
func Literal(name string) Then {
	return func(*WorkflowState) string { return name }
}

// Kind discriminates the NodeDefinition tagged union. Every node carries
// exactly one Kind and the engine dispatches on it via the Runtime table
// built at schema-load time, not by inspecting this tag directly.
type Kind string

const (
	KindAgent          Kind = "agent"
	KindCommand        Kind = "command"
	KindSlashCommand   Kind = "slash_command"
	KindEval           Kind = "eval"
	KindDynamicAgent   Kind = "dynamic_agent"
	KindDynamicCommand Kind = "dynamic_command"
	KindLLM            Kind = "llm"
	KindHTTP           Kind = "http"
	KindGitCheckout    Kind = "git_checkout"
)

// Definition is the declarative record produced by the schema builder for
// a single node. The Kind field selects which of the per-kind config
// structs below is populated; exactly one is non-nil for a well-formed
// definition (enforced by structural validation, see schema.go).
type Definition struct {
	Then Then
	Name string
	Kind Kind

	Agent          *AgentConfig
	Command        *CommandConfig
	SlashCommand   *SlashCommandConfig
	Eval           *EvalConfig
	DynamicAgent   *DynamicAgentConfig
	DynamicCommand *DynamicCommandConfig
	LLM            *LLMConfig
	HTTP           *HTTPConfig
	GitCheckout    *GitCheckoutConfig
}

// AgentConfig configures an Agent-SDK-backed node: a tool-using agent
// bounded by a turn count.
type AgentConfig struct {
	Role          string
	SystemPrompt  string
	Model         string
	Capabilities  []string
	MaxTurns      int
	Temperature   float32
	ThrowOnError  bool
	ResultKey     string
}

// CommandConfig configures a subprocess node with a fixed, literal
// command.
type CommandConfig struct {
	CommandString string
	Cwd           string
	Env           map[string]string
	Timeout       int // seconds; 0 means use the kind default
	ThrowOnError  bool
	ResultKey     string
}

// SlashCommandConfig configures a slash-command-runtime node.
type SlashCommandConfig struct {
	CommandName  string
	Args         []string
	ThrowOnError bool
	ResultKey    string
}

// EvalFunc is the pure transform an Eval node runs: state in, partial
// context out. It must not perform I/O or suspend.
type EvalFunc func(state *WorkflowState) Context

// EvalConfig configures a synchronous, side-effect-free context transform.
type EvalConfig struct {
	Transform EvalFunc
	ResultKey string
}

// Resolver functions let Dynamic* nodes derive their shape from the
// current state rather than fixed config.
type (
	StringResolver   func(state *WorkflowState) string
	StringsResolver  func(state *WorkflowState) []string
	Float32Resolver  func(state *WorkflowState) float32
	IntResolver      func(state *WorkflowState) int
)

// DynamicAgentConfig configures an Agent node whose model, prompts,
// capabilities, turn cap, and temperature are all resolved from state at
// execution time.
type DynamicAgentConfig struct {
	Model        StringResolver
	Prompt       StringResolver
	System       StringResolver
	Capabilities StringsResolver
	MaxTurns     IntResolver
	Temperature  Float32Resolver
	ThrowOnError bool
	ResultKey    string
}

// DynamicCommandConfig configures a Command node whose argument vector (or
// shell string) is resolved from state. Resolver returning a single
// element is treated as a shell string subject to the same meta-character
// detection as CommandConfig; more than one element bypasses the shell.
type DynamicCommandConfig struct {
	Command      func(state *WorkflowState) []string
	Cwd          StringResolver
	Env          func(state *WorkflowState) map[string]string
	Timeout      IntResolver
	ThrowOnError bool
	ResultKey    string
}

// LLMConfig configures a direct LLM-provider node (no tool use, no agent
// loop) — the lightest-weight way to get a completion into context.
type LLMConfig struct {
	Model           string
	SystemPrompt    StringResolver
	UserPrompt      StringResolver
	Temperature     float32
	MaxTokens       int
	ReasoningEffort string
	EnableWebSearch bool
	OutputMode      string // "text" or "json"
	ThrowOnError    bool
	ResultKey       string
}

// HTTPConfig configures an HTTP fetch node.
type HTTPConfig struct {
	URL          StringResolver
	Method       string
	Body         func(state *WorkflowState) any
	Query        func(state *WorkflowState) map[string]string
	Headers      map[string]string
	ThrowOnError bool
	ResultKey    string
}

// GitCheckoutConfig configures a git-checkout node.
type GitCheckoutConfig struct {
	Owner         string
	Repo          string
	Ref           string
	UseIssueContext bool
	Depth           int
	SkipIfExists    *bool // nil means default true
	ThrowOnError    bool
	ResultKey       string
}
