package issueprocessor

import (
	"regexp"
	"strconv"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/nodes"
	"github.com/iota-uz/foundry/pkg/utils"
)

var (
	prURLPattern    = regexp.MustCompile(`(?m)^PR_URL=(.+)$`)
	branchPattern   = regexp.MustCompile(`(?m)^BRANCH_NAME=(.+)$`)
	prNumberPattern = regexp.MustCompile(`/pull/(\d+)`)
)

// parsePRTransform builds PARSE_PR's Eval: it extracts prNumber/prUrl/
// branchName from CREATE_PR's stdout, and also materializes the task list
// PLAN produced (no dedicated parse-plan node exists in the schema, and
// Eval is the only kind permitted to write an arbitrary context delta
// without suspension, so this step does double duty).
func parsePRTransform(name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		patch := graph.Context{ctxCompletedNodes: markVisited(state.Context, name)}

		if raw, ok := state.Context[nodes.StashDynamicCommandResult]; ok {
			if stdout, ok := nodes.StdoutOf(raw); ok {
				if m := prURLPattern.FindStringSubmatch(stdout); m != nil {
					patch[ctxPRURL] = m[1]
					if n := prNumberPattern.FindStringSubmatch(m[1]); n != nil {
						if num, err := strconv.Atoi(n[1]); err == nil {
							patch[ctxPRNumber] = num
						}
					}
				}
				if m := branchPattern.FindStringSubmatch(stdout); m != nil {
					patch[ctxBranchName] = m[1]
				}
			}
		}

		if agentResult, ok := state.Context[nodes.StashAgentResult]; ok {
			if finalMessage, ok := agentFinalMessage(agentResult); ok {
				tasks := parseTasks(finalMessage)
				patch[ctxTasks] = tasks
				if t := currentTask(tasks, 0); t != nil {
					patch[ctxCurrentTask] = t.Description
				}
			}
		}

		return patch
	}
}

// agentFinalMessage extracts an Agent node's finalMessage field, tolerant
// of both the in-process map[string]any shape and a JSON round trip
// through the persistence store (still map[string]any after decode).
func agentFinalMessage(v any) (string, bool) {
	m, err := utils.AssertMapStringAny(v)
	if err != nil {
		return "", false
	}
	s, err := utils.GetMapField[string](m, "finalMessage")
	return s, err == nil
}

// setTestResultTransform builds SET_TEST_RESULT's Eval: testsPassed is
// exit code 0 from TEST's Command result.
func setTestResultTransform(name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		passed := false
		if raw, ok := state.Context[nodes.StashCommandResult]; ok {
			if code, ok := nodes.ExitCodeOf(raw); ok {
				passed = code == 0
			}
		}
		return graph.Context{
			ctxTestsPassed:    passed,
			ctxCompletedNodes: markVisited(state.Context, name),
		}
	}
}

// genPRStatusTransform builds GEN_PR_STATUS's Eval: compose the dashboard
// markdown WRITE_PR_STATUS will upsert into the PR body.
func genPRStatusTransform(cfg Config, name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		tasks := getTasks(state)
		task := currentTask(tasks, state.Context.GetInt(ctxCurrentTaskIndex))
		rendered := RenderDashboard(
			dashboardInputFor(cfg, state, task),
			state.CurrentNode,
			stringsFrom(state.Context[ctxCompletedNodes]),
			stringsFrom(state.Context[ctxFailedNodes]),
		)
		return graph.Context{
			ctxPRBodyMarkdown: rendered,
			ctxCompletedNodes: markVisited(state.Context, name),
		}
	}
}

// genFinalPRTransform builds GEN_FINAL_PR's Eval: the same renderer, with
// every node marked completed since the loop has finished.
func genFinalPRTransform(cfg Config, name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		rendered := RenderDashboard(dashboardInputFor(cfg, state, nil), "REPORT", allNodes, nil)
		return graph.Context{
			ctxPRBodyMarkdown: rendered,
			ctxCompletedNodes: markVisited(state.Context, name),
		}
	}
}

func dashboardInputFor(cfg Config, state *graph.WorkflowState, task *Task) DashboardInput {
	currentTaskLabel := ""
	if task != nil {
		currentTaskLabel = task.Description
	}
	return DashboardInput{
		MarkerID:      cfg.RunID,
		CurrentTask:   currentTaskLabel,
		RetryAttempt:  state.Context.GetInt(ctxFixAttempts),
		MaxRetries:    cfg.MaxFixAttempts,
		ActionsRunURL: state.Context.GetString(ctxActionsRunURL),
		Title:         "Issue #" + strconv.Itoa(cfg.IssueNumber),
	}
}

// incrementRetryTransform builds INCREMENT_RETRY's Eval: ++fixAttempts.
// The routing decision (retry vs. advance past maxFixAttempts) lives in
// the node's Then predicate, not here.
func incrementRetryTransform(name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		return graph.Context{
			ctxFixAttempts:    state.Context.GetInt(ctxFixAttempts) + 1,
			ctxCompletedNodes: markVisited(state.Context, name),
		}
	}
}

// nextTaskTransform builds NEXT_TASK's Eval: marks the current task
// complete and resets the per-task retry state. The advance-vs-finalize
// decision lives in the Then predicate.
func nextTaskTransform(name string) graph.EvalFunc {
	return func(state *graph.WorkflowState) graph.Context {
		tasks := getTasks(state)
		index := state.Context.GetInt(ctxCurrentTaskIndex)
		if t := currentTask(tasks, index); t != nil {
			t.Completed = true
		}

		allComplete := allTasksComplete(tasks, index+1)
		nextIndex := index
		if !allComplete {
			nextIndex = index + 1
		}

		nextDescription := ""
		if t := currentTask(tasks, nextIndex); t != nil {
			nextDescription = t.Description
		}

		return graph.Context{
			ctxTasks:            tasks,
			ctxCurrentTaskIndex: nextIndex,
			ctxCurrentTask:      nextDescription,
			ctxTestsPassed:      false,
			ctxFixAttempts:      0,
			ctxAllTasksComplete: allComplete,
			ctxCompletedNodes:   markVisited(state.Context, name),
		}
	}
}

func allTasksComplete(tasks []Task, nextIndex int) bool {
	return nextIndex >= len(tasks)
}
