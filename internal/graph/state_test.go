package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextMergeDoesNotMutateReceiver(t *testing.T) {
	base := Context{"a": 1}
	merged := base.Merge(Context{"b": 2})

	assert.Equal(t, Context{"a": 1}, base)
	assert.Equal(t, Context{"a": 1, "b": 2}, merged)
}

func TestContextGetters(t *testing.T) {
	c := Context{"s": "hello", "b": true, "i": 3, "f": float64(4)}
	assert.Equal(t, "hello", c.GetString("s"))
	assert.Equal(t, "", c.GetString("missing"))
	assert.True(t, c.GetBool("b"))
	assert.Equal(t, 3, c.GetInt("i"))
	assert.Equal(t, 4, c.GetInt("f"))
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		node   string
		status Status
		want   bool
	}{
		{"ANALYZE", StatusRunning, false},
		{End, StatusRunning, true},
		{Error, StatusRunning, true},
		{"ANALYZE", StatusCompleted, true},
		{"ANALYZE", StatusFailed, true},
	}
	for _, tc := range cases {
		s := &WorkflowState{CurrentNode: tc.node, Status: tc.status}
		assert.Equal(t, tc.want, s.IsTerminal(), "node=%s status=%s", tc.node, tc.status)
	}
}

func TestTouchIsMonotonic(t *testing.T) {
	s := &WorkflowState{UpdatedAt: time.Now().UTC()}
	prev := s.UpdatedAt
	s.Touch()
	assert.True(t, s.UpdatedAt.After(prev))
}

func TestApplyDeltaMergesAndAppendsHistory(t *testing.T) {
	s := NewState("ANALYZE", Context{"x": 1})
	s.ApplyDelta(StateDelta{
		Context: Context{"y": 2},
		History: []Message{{Role: "assistant"}},
	})
	assert.Equal(t, 1, s.Context.GetInt("x"))
	assert.Equal(t, 2, s.Context.GetInt("y"))
	assert.Len(t, s.ConversationHistory, 1)
}
