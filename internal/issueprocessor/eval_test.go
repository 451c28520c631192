package issueprocessor

import (
	"testing"

	"github.com/iota-uz/foundry/internal/graph"
	"github.com/iota-uz/foundry/internal/nodes"
	"github.com/stretchr/testify/assert"
)

func newState(ctx graph.Context) *graph.WorkflowState {
	return graph.NewState(nodeAnalyze, ctx)
}

func TestParsePRTransformExtractsPRFieldsAndTasks(t *testing.T) {
	stdout := "pushing...\nPR_URL=https://github.com/acme/widgets/pull/42\nBRANCH_NAME=issue-7\n"
	state := newState(graph.Context{
		nodes.StashDynamicCommandResult: nodes.CommandResult{Stdout: stdout, Success: true},
		nodes.StashAgentResult: map[string]any{
			"finalMessage": `[{"id":"t1","description":"do the thing","complexity":"small"}]`,
		},
	})

	patch := parsePRTransform(nodeParsePR)(state)

	assert.Equal(t, "https://github.com/acme/widgets/pull/42", patch[ctxPRURL])
	assert.Equal(t, 42, patch[ctxPRNumber])
	assert.Equal(t, "issue-7", patch[ctxBranchName])

	tasks, ok := patch[ctxTasks].([]Task)
	assert.True(t, ok)
	assert.Len(t, tasks, 1)
	assert.Equal(t, "do the thing", patch[ctxCurrentTask])
	assert.Equal(t, []string{nodeParsePR}, patch[ctxCompletedNodes])
}

func TestSetTestResultTransformReadsExitCode(t *testing.T) {
	passing := newState(graph.Context{nodes.StashCommandResult: nodes.CommandResult{ExitCode: 0}})
	patch := setTestResultTransform(nodeSetTestResult)(passing)
	assert.Equal(t, true, patch[ctxTestsPassed])

	failing := newState(graph.Context{nodes.StashCommandResult: nodes.CommandResult{ExitCode: 1}})
	patch = setTestResultTransform(nodeSetTestResult)(failing)
	assert.Equal(t, false, patch[ctxTestsPassed])
}

func TestSetTestResultTransformHandlesRoundTrippedResult(t *testing.T) {
	state := newState(graph.Context{nodes.StashCommandResult: map[string]any{"exitCode": float64(0)}})
	patch := setTestResultTransform(nodeSetTestResult)(state)
	assert.Equal(t, true, patch[ctxTestsPassed])
}

func TestIncrementRetryTransformIncrements(t *testing.T) {
	state := newState(graph.Context{ctxFixAttempts: 1})
	patch := incrementRetryTransform(nodeIncrementRetry)(state)
	assert.Equal(t, 2, patch[ctxFixAttempts])
}

func TestNextTaskTransformAdvancesAndResets(t *testing.T) {
	tasks := []Task{{ID: "t1", Description: "first"}, {ID: "t2", Description: "second"}}
	state := newState(graph.Context{
		ctxTasks:            tasks,
		ctxCurrentTaskIndex: 0,
		ctxFixAttempts:      2,
		ctxTestsPassed:      true,
	})

	patch := nextTaskTransform(nodeNextTask)(state)

	assert.Equal(t, 1, patch[ctxCurrentTaskIndex])
	assert.Equal(t, "second", patch[ctxCurrentTask])
	assert.Equal(t, 0, patch[ctxFixAttempts])
	assert.Equal(t, false, patch[ctxTestsPassed])
	assert.Equal(t, false, patch[ctxAllTasksComplete])

	patched := patch[ctxTasks].([]Task)
	assert.True(t, patched[0].Completed)
}

func TestNextTaskTransformFlagsAllComplete(t *testing.T) {
	tasks := []Task{{ID: "t1"}}
	state := newState(graph.Context{ctxTasks: tasks, ctxCurrentTaskIndex: 0})

	patch := nextTaskTransform(nodeNextTask)(state)

	assert.Equal(t, true, patch[ctxAllTasksComplete])
	assert.Equal(t, 0, patch[ctxCurrentTaskIndex])
}

func TestGenPRStatusTransformRendersDashboard(t *testing.T) {
	cfg := Config{IssueNumber: 7, MaxFixAttempts: 3}
	state := newState(graph.Context{
		ctxTasks:            []Task{{ID: "t1", Description: "wire it up"}},
		ctxCurrentTaskIndex: 0,
		ctxFixAttempts:      1,
	})
	state.CurrentNode = nodeGenPRStatus

	patch := genPRStatusTransform(cfg, nodeGenPRStatus)(state)

	markdown, ok := patch[ctxPRBodyMarkdown].(string)
	assert.True(t, ok)
	assert.Contains(t, markdown, "stateDiagram-v2")
	assert.Contains(t, markdown, "wire it up")
}
