package providers

import "context"

// AgentRequest configures a tool-using agent turn, the Agent/DynamicAgent
// node's underlying call shape — richer than a plain CompletionRequest
// because the agent loop may invoke tools across multiple turns before
// yielding a final answer.
type AgentRequest struct {
	Role         string
	SystemPrompt string
	UserPrompt   string
	Model        string
	Capabilities []string
	MaxTurns     int
	Temperature  float32
}

// AgentResponse is what survives an agent run for the workflow context.
type AgentResponse struct {
	FinalMessage string
	ToolCalls    []string
	TurnsUsed    int
}

// AgentRunner executes a bounded, tool-using agent loop.
type AgentRunner interface {
	Run(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

// SlashCommandRequest invokes a named, pre-registered command template
// (the SlashCommand node's shape) rather than an ad hoc prompt.
type SlashCommandRequest struct {
	Name string
	Args []string
}

// SlashCommandResponse is the rendered result of running a slash command.
type SlashCommandResponse struct {
	Output string
}

// SlashCommandRunner resolves and executes a named slash command.
type SlashCommandRunner interface {
	Run(ctx context.Context, req SlashCommandRequest) (SlashCommandResponse, error)
}
