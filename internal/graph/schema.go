package graph

import "fmt"

// Config is the declarative workflow definition: a schema-name universe,
// the ordered list of node definitions (the first is the entry), and an
// optional seed context.
type Config struct {
	InitialContext Context
	ID             string
	SchemaNames    map[string]struct{}
	Nodes          []*Definition
}

// Entry returns the first node in Nodes, the run's starting point.
func (c *Config) Entry() string {
	if len(c.Nodes) == 0 {
		return ""
	}
	return c.Nodes[0].Name
}

// Validate runs the three defense layers in order: structural,
// referential, semantic. It returns the first *ConfigError encountered
// and runs no later layer once one has failed.
func (c *Config) Validate() error {
	if err := c.validateStructural(); err != nil {
		return err
	}
	if err := c.validateReferential(); err != nil {
		return err
	}
	return c.validateSemantic()
}

// validateStructural checks each definition's variant matches its field
// set: required fields non-empty, numeric ranges honored, transitions
// present.
func (c *Config) validateStructural() error {
	if c.ID == "" {
		return &ConfigError{Reason: "workflow id must not be empty"}
	}
	if len(c.Nodes) == 0 {
		return &ConfigError{Reason: "workflow must declare at least one node"}
	}
	for _, n := range c.Nodes {
		if n.Name == "" {
			return &ConfigError{Reason: "node name must not be empty"}
		}
		if n.Then == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q must declare a transition predicate", n.Name)}
		}
		if err := validateKindShape(n); err != nil {
			return err
		}
	}
	return nil
}

func validateKindShape(n *Definition) error {
	switch n.Kind {
	case KindAgent:
		if n.Agent == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q declared kind agent without AgentConfig", n.Name)}
		}
		if n.Agent.SystemPrompt == "" {
			return &ConfigError{Reason: fmt.Sprintf("node %q: agent requires a system prompt", n.Name)}
		}
		if n.Agent.Temperature < 0 || n.Agent.Temperature > 1 {
			return &ConfigError{Reason: fmt.Sprintf("node %q: temperature must be in [0,1]", n.Name)}
		}
		if n.Agent.MaxTurns < 0 {
			return &ConfigError{Reason: fmt.Sprintf("node %q: maxTurns must be positive", n.Name)}
		}
	case KindCommand:
		if n.Command == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q declared kind command without CommandConfig", n.Name)}
		}
		if n.Command.CommandString == "" {
			return &ConfigError{Reason: fmt.Sprintf("node %q: command must not be empty", n.Name)}
		}
		if n.Command.Timeout < 0 {
			return &ConfigError{Reason: fmt.Sprintf("node %q: timeout must be positive", n.Name)}
		}
	case KindSlashCommand:
		if n.SlashCommand == nil || n.SlashCommand.CommandName == "" {
			return &ConfigError{Reason: fmt.Sprintf("node %q: slash command name must not be empty", n.Name)}
		}
	case KindEval:
		if n.Eval == nil || n.Eval.Transform == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q declared kind eval without a transform function", n.Name)}
		}
	case KindDynamicAgent:
		if n.DynamicAgent == nil || n.DynamicAgent.Model == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q: dynamic agent requires a model resolver", n.Name)}
		}
	case KindDynamicCommand:
		if n.DynamicCommand == nil || n.DynamicCommand.Command == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q: dynamic command requires a command resolver", n.Name)}
		}
	case KindLLM:
		if n.LLM == nil || n.LLM.UserPrompt == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q: llm node requires a user prompt resolver", n.Name)}
		}
		if n.LLM.Temperature < 0 || n.LLM.Temperature > 1 {
			return &ConfigError{Reason: fmt.Sprintf("node %q: temperature must be in [0,1]", n.Name)}
		}
	case KindHTTP:
		if n.HTTP == nil || n.HTTP.URL == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q: http node requires a URL resolver", n.Name)}
		}
	case KindGitCheckout:
		if n.GitCheckout == nil {
			return &ConfigError{Reason: fmt.Sprintf("node %q declared kind git_checkout without GitCheckoutConfig", n.Name)}
		}
		if n.GitCheckout.Depth < 0 {
			return &ConfigError{Reason: fmt.Sprintf("node %q: depth must be positive", n.Name)}
		}
	default:
		return &ConfigError{Reason: fmt.Sprintf("node %q: unknown kind %q", n.Name, n.Kind)}
	}
	return nil
}

// validateReferential checks: every node's name is in SchemaNames, no
// duplicate names, the reserved sentinels are not redefined, and the entry
// node exists.
func (c *Config) validateReferential() error {
	seen := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Name == End || n.Name == Error {
			return &ConfigError{Reason: fmt.Sprintf("node name %q reuses a reserved sentinel", n.Name)}
		}
		if _, dup := seen[n.Name]; dup {
			return &ConfigError{Reason: fmt.Sprintf("duplicate node name %q", n.Name)}
		}
		seen[n.Name] = struct{}{}
		if _, ok := c.SchemaNames[n.Name]; !ok {
			return &ConfigError{Reason: fmt.Sprintf("node %q is not declared in schemaNames", n.Name)}
		}
	}
	for name := range c.SchemaNames {
		if _, ok := seen[name]; !ok {
			return &ConfigError{Reason: fmt.Sprintf("schema name %q has no node definition", name)}
		}
	}
	if _, ok := seen[c.Entry()]; !ok {
		return &ConfigError{Reason: "entry node does not exist"}
	}
	return nil
}

// validateSemantic reports unreachable nodes by walking literal
// transitions from the entry. If any node in the graph has a non-literal
// (dynamic) transition, the unreachability check is suppressed entirely —
// predicate targets cannot be statically determined.
func (c *Config) validateSemantic() error {
	byName := make(map[string]*Definition, len(c.Nodes))
	for _, n := range c.Nodes {
		byName[n.Name] = n
	}

	literalTarget := make(map[string]string, len(c.Nodes))
	for _, n := range c.Nodes {
		target, isLiteral := probeLiteral(n.Then)
		if !isLiteral {
			// Any dynamic transition anywhere suppresses the whole check.
			return nil
		}
		literalTarget[n.Name] = target
	}

	reachable := map[string]struct{}{c.Entry(): {}}
	frontier := []string{c.Entry()}
	for len(frontier) > 0 {
		cur := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		next, ok := literalTarget[cur]
		if !ok || next == End || next == Error {
			continue
		}
		if _, ok := reachable[next]; ok {
			continue
		}
		reachable[next] = struct{}{}
		frontier = append(frontier, next)
	}

	for _, n := range c.Nodes {
		if _, ok := reachable[n.Name]; !ok {
			return &ConfigError{Reason: fmt.Sprintf("node %q is unreachable from the entry", n.Name)}
		}
	}
	return nil
}

// probeLiteral detects whether a Then predicate behaves like Literal by
// evaluating it against nil; a literal predicate ignores its argument, so
// this is safe and deterministic. Predicates built any other way are
// treated as dynamic, which only widens the set of workflows the
// unreachability check declines to second-guess.
func probeLiteral(then Then) (target string, isLiteral bool) {
	defer func() {
		if recover() != nil {
			isLiteral = false
		}
	}()
	a := then(nil)
	b := then(&WorkflowState{CurrentNode: "__probe__"})
	if a == b {
		return a, true
	}
	return "", false
}
