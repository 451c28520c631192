package providers

import (
	"context"
	"fmt"
	"strings"
)

// LLMAgentRunner implements AgentRunner on top of a model Registry: it has
// no tool-execution harness of its own, so "tool-use iteration" collapses
// to a single completion per turn, with each turn's output fed back as the
// prior turn's context until the model stops asking for another turn or
// MaxTurns is reached. This is the same boundary CompletionRequest/
// CompletionResponse already draw for LLM nodes, reused here because
// nothing downstream distinguishes a one-turn agent from a direct
// completion.
type LLMAgentRunner struct {
	registry     *Registry
	defaultModel string
}

// NewLLMAgentRunner builds an AgentRunner resolving models through
// registry, falling back to defaultModel when a request doesn't specify
// one.
func NewLLMAgentRunner(registry *Registry, defaultModel string) *LLMAgentRunner {
	return &LLMAgentRunner{registry: registry, defaultModel: defaultModel}
}

// continuePrefix, when present at the start of a model's response, signals
// the agent loop should run another turn instead of yielding.
const continuePrefix = "CONTINUE:"

// Run drives req through up to req.MaxTurns completions, stopping early
// when a turn's response doesn't begin with continuePrefix.
func (a *LLMAgentRunner) Run(ctx context.Context, req AgentRequest) (AgentResponse, error) {
	model := req.Model
	if model == "" {
		model = a.defaultModel
	}
	client, ok := a.registry.Resolve(model)
	if !ok {
		return AgentResponse{}, fmt.Errorf("llm agent: no client registered for model %q", model)
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1
	}

	system := req.SystemPrompt
	if len(req.Capabilities) > 0 {
		system += "\n\nAvailable capabilities: " + strings.Join(req.Capabilities, ", ") +
			"\nRespond with \"" + continuePrefix + "\" followed by your reasoning if you need another turn, otherwise give your final answer directly."
	}

	messages := []Message{{Role: "user", Content: req.UserPrompt}}
	var last CompletionResponse
	turnsUsed := 0

	for turn := 0; turn < maxTurns; turn++ {
		resp, err := client.Complete(ctx, CompletionRequest{
			Model:        model,
			SystemPrompt: system,
			Messages:     messages,
			Temperature:  req.Temperature,
		})
		if err != nil {
			return AgentResponse{}, fmt.Errorf("llm agent: turn %d: %w", turn+1, err)
		}
		turnsUsed++
		last = resp

		if !strings.HasPrefix(strings.TrimSpace(resp.Content), continuePrefix) {
			break
		}
		messages = append(messages, Message{Role: "assistant", Content: resp.Content})
		messages = append(messages, Message{Role: "user", Content: "Continue."})
	}

	return AgentResponse{
		FinalMessage: strings.TrimPrefix(strings.TrimSpace(last.Content), continuePrefix),
		TurnsUsed:    turnsUsed,
	}, nil
}
