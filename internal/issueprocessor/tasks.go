package issueprocessor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/iota-uz/foundry/internal/graph"
)

var fencedJSONArray = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// parseTasks decodes PLAN's agent output into a task list. The agent is
// instructed to emit a bare JSON array; this tolerates it being wrapped in
// a fenced code block, and falls back to a single synthetic task rather
// than failing the run outright when the agent didn't comply.
func parseTasks(raw string) []Task {
	var tasks []Task
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &tasks); err == nil && len(tasks) > 0 {
		return tasks
	}

	if m := fencedJSONArray.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &tasks); err == nil && len(tasks) > 0 {
			return tasks
		}
	}

	return []Task{{ID: "t1", Description: strings.TrimSpace(raw), Complexity: "medium"}}
}

// tasksFrom normalizes the "tasks" context value, which is a []Task while
// the run is in-memory and a []interface{} of map[string]any once it has
// round-tripped through the persistence store.
func tasksFrom(v any) []Task {
	switch t := v.(type) {
	case []Task:
		return t
	case []any:
		out := make([]Task, 0, len(t))
		for _, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, taskFromMap(m))
		}
		return out
	default:
		return nil
	}
}

func taskFromMap(m map[string]any) Task {
	task := Task{
		ID:          stringField(m, "id"),
		Description: stringField(m, "description"),
		Complexity:  stringField(m, "complexity"),
		Completed:   boolField(m, "completed"),
	}
	task.Dependencies = stringSliceField(m, "dependencies")
	task.Files = stringSliceField(m, "files")
	return task
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// getTasks reads the normalized task list from state.
func getTasks(state *graph.WorkflowState) []Task {
	return tasksFrom(state.Context[ctxTasks])
}

// currentTask returns the task at currentTaskIndex, or nil if the index
// is out of range (no tasks planned, or all tasks already advanced past).
func currentTask(tasks []Task, index int) *Task {
	if index < 0 || index >= len(tasks) {
		return nil
	}
	return &tasks[index]
}
