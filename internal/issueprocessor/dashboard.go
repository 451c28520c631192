package issueprocessor

import (
	"fmt"
	"strings"
)

// allNodes lists every node name in the fixed schema, in table order —
// the "list of all node names" §4.9's status derivation takes as input.
var allNodes = []string{
	"ANALYZE", "PLAN", "CREATE_PR", "PARSE_PR", "EXPLORE", "IMPLEMENT",
	"TEST", "SET_TEST_RESULT", "GEN_PR_STATUS", "WRITE_PR_STATUS",
	"INCREMENT_RETRY", "NEXT_TASK", "GEN_FINAL_PR", "WRITE_FINAL_PR",
	"SET_DONE_STATUS", "REPORT",
}

// edge is one transition drawn in the Mermaid diagram; Label annotates a
// conditional edge (e.g. "tests pass").
type edge struct {
	From, To, Label string
}

// diagramEdges is the static transition shape of the schema. Conditional
// branches (WRITE_PR_STATUS, INCREMENT_RETRY, NEXT_TASK) are drawn with
// both possible targets, each labeled.
var diagramEdges = []edge{
	{"ANALYZE", "PLAN", ""},
	{"PLAN", "CREATE_PR", ""},
	{"CREATE_PR", "PARSE_PR", ""},
	{"PARSE_PR", "EXPLORE", ""},
	{"EXPLORE", "IMPLEMENT", ""},
	{"IMPLEMENT", "TEST", ""},
	{"TEST", "SET_TEST_RESULT", ""},
	{"SET_TEST_RESULT", "GEN_PR_STATUS", ""},
	{"GEN_PR_STATUS", "WRITE_PR_STATUS", ""},
	{"WRITE_PR_STATUS", "NEXT_TASK", "tests pass"},
	{"WRITE_PR_STATUS", "INCREMENT_RETRY", "tests fail"},
	{"INCREMENT_RETRY", "IMPLEMENT", "attempts remain"},
	{"INCREMENT_RETRY", "NEXT_TASK", "attempts exhausted"},
	{"NEXT_TASK", "IMPLEMENT", "more tasks"},
	{"NEXT_TASK", "GEN_FINAL_PR", "all tasks complete"},
	{"GEN_FINAL_PR", "WRITE_FINAL_PR", ""},
	{"WRITE_FINAL_PR", "SET_DONE_STATUS", ""},
	{"SET_DONE_STATUS", "REPORT", ""},
	{"REPORT", "[*]", ""},
}

// nodeStatus classifies name relative to the run's progress: active wins
// over failed wins over completed wins over the pending default.
func nodeStatus(name, active string, completed, failed map[string]struct{}) string {
	if name == active {
		return "active"
	}
	if _, ok := failed[name]; ok {
		return "failed"
	}
	if _, ok := completed[name]; ok {
		return "completed"
	}
	return "pending"
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// DashboardInput carries the status-table fields §4.9 lists alongside the
// diagram itself.
type DashboardInput struct {
	MarkerID      string
	CurrentTask   string
	RetryAttempt  int
	MaxRetries    int
	ActionsRunURL string
	Title         string
}

// renderMermaid emits the stateDiagram-v2 block: declared states, edges
// (END always a valid target), and a classDef/class pair per node giving
// it its status-derived CSS class.
func renderMermaid(activeNode string, completed, failed []string) string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")
	b.WriteString("    [*] --> ANALYZE\n")
	for _, e := range diagramEdges {
		if e.Label == "" {
			fmt.Fprintf(&b, "    %s --> %s\n", e.From, e.To)
		} else {
			fmt.Fprintf(&b, "    %s --> %s : %s\n", e.From, e.To, e.Label)
		}
	}
	b.WriteString("    ERROR --> [*]\n")

	b.WriteString("    classDef completed fill:#d4f4dd,stroke:#2e7d32\n")
	b.WriteString("    classDef active fill:#fff3cd,stroke:#856404\n")
	b.WriteString("    classDef failed fill:#f8d7da,stroke:#721c24\n")
	b.WriteString("    classDef pending fill:#eceff1,stroke:#607d8b\n")

	completedSet, failedSet := toSet(completed), toSet(failed)
	for _, n := range allNodes {
		fmt.Fprintf(&b, "    class %s %s\n", n, nodeStatus(n, activeNode, completedSet, failedSet))
	}
	return b.String()
}

func renderStatusTable(in DashboardInput) string {
	var b strings.Builder
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Current task | %s |\n", orDash(in.CurrentTask))
	if in.MaxRetries > 0 {
		fmt.Fprintf(&b, "| Fix attempts | %d/%d |\n", in.RetryAttempt, in.MaxRetries)
	}
	if in.ActionsRunURL != "" {
		fmt.Fprintf(&b, "| Logs | [run](%s) |\n", in.ActionsRunURL)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// RenderDashboard produces the self-contained Markdown block embedded
// between the PR-body marker pair: a title, the Mermaid diagram, and the
// status table.
func RenderDashboard(in DashboardInput, activeNode string, completed, failed []string) string {
	title := in.Title
	if title == "" {
		title = "Workflow status"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", title)
	b.WriteString("```mermaid\n")
	b.WriteString(renderMermaid(activeNode, completed, failed))
	b.WriteString("```\n\n")
	b.WriteString(renderStatusTable(in))
	return b.String()
}
