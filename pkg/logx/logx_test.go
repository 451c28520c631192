package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debugf("should not appear")
	l.Infof("should not appear either")
	l.Warnf("visible warning")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "visible warning")
	assert.Contains(t, out, string(LevelWarn))
}

func TestWithAttachesAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)

	child := l.With("node", "ANALYZE", "attempt", 1)
	child.Infof("executing")

	line := buf.String()
	assert.True(t, strings.Contains(line, "node=ANALYZE"))
	assert.True(t, strings.Contains(line, "attempt=1"))
}

func TestErrorfReturnsWrappedError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)

	err := l.Errorf("dispatch failed: %s", "bad auth")
	assert.EqualError(t, err, "dispatch failed: bad auth")
	assert.Contains(t, buf.String(), "dispatch failed: bad auth")
}
