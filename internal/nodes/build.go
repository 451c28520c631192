package nodes

import (
	"fmt"
	"net/http"

	"github.com/iota-uz/foundry/internal/execx"
	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/providers"
)

// Backends bundles every collaborator a concrete node runtime might need.
// Build only reaches into the fields a given Kind actually requires, so a
// caller wiring a workflow that never uses, say, Agent nodes can leave
// AgentRunner nil.
type Backends struct {
	Runner       execx.Runner
	LLM          providers.LLMClient
	Agent        providers.AgentRunner
	SlashCommand providers.SlashCommandRunner
	HTTPClient   *http.Client
	GitBaseDir   string
	GitToken     string
}

// Build validates cfg and constructs a graph.Table by dispatching each
// node definition to its concrete runtime constructor. It is the single
// place that knows both graph's declarative shapes and the domain
// backends that implement them — graph itself never imports this package.
func Build(cfg *graph.Config, backends Backends) (graph.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table := make(graph.Table, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		runtime, err := buildOne(n, backends)
		if err != nil {
			return nil, err
		}
		table[n.Name] = runtime
	}
	return table, nil
}

func buildOne(n *graph.Definition, b Backends) (graph.Runtime, error) {
	switch n.Kind {
	case graph.KindAgent:
		return NewAgent(n.Name, n.Agent, n.Then, b.Agent), nil
	case graph.KindCommand:
		return NewCommand(n.Name, n.Command, n.Then, b.Runner), nil
	case graph.KindSlashCommand:
		return NewSlashCommand(n.Name, n.SlashCommand, n.Then, b.SlashCommand), nil
	case graph.KindEval:
		return NewEval(n.Eval, n.Then), nil
	case graph.KindDynamicAgent:
		return NewDynamicAgent(n.Name, n.DynamicAgent, n.Then, b.Agent), nil
	case graph.KindDynamicCommand:
		return NewDynamicCommand(n.Name, n.DynamicCommand, n.Then, b.Runner), nil
	case graph.KindLLM:
		return NewLLM(n.Name, n.LLM, n.Then, b.LLM), nil
	case graph.KindHTTP:
		return NewHTTP(n.Name, n.HTTP, n.Then, b.HTTPClient), nil
	case graph.KindGitCheckout:
		return NewGitCheckout(n.Name, n.GitCheckout, n.Then, b.Runner, b.GitBaseDir, b.GitToken), nil
	default:
		return nil, fmt.Errorf("nodes: no runtime constructor registered for kind %q", n.Kind)
	}
}
