package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger = (*StructuredLogger)(nil)
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = NoOpLogger{}
)

func newBufferLogger(level LogLevel) (*StructuredLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, ok = ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, LogLevelWarn, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, LogLevelInfo, lvl)
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Info("engine.turn.start")
	l.Warn("engine.action.unrecognized", "type", "dance")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "engine.action.unrecognized", lines[0]["msg"])
	assert.Equal(t, "dance", lines[0]["type"])
}

func TestStructuredLogger_ContextIsCopied(t *testing.T) {
	base, buf := newBufferLogger(LogLevelDebug)
	scoped := base.WithComponent("engine").WithConversation("c-1").WithAttr("tenant", "acme")

	base.Info("base")
	scoped.Info("scoped")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "component")
	assert.Equal(t, "engine", lines[1]["component"])
	assert.Equal(t, "c-1", lines[1]["conversation_id"])
	assert.Equal(t, "acme", lines[1]["tenant"])
}

func TestStructuredLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.LogDecision("info", "gpt-4o-mini", 10*time.Millisecond, false, errors.New("boom"))
	l.LogToolCall("get_pending_documents", time.Millisecond, true, nil)
	l.LogTurn("info", 2, 1, time.Millisecond, "finish_turn")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "decision.failed", lines[0]["msg"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "tool.call.completed", lines[1]["msg"])
	assert.Equal(t, "turn.completed", lines[2]["msg"])
	assert.Equal(t, float64(2), lines[2]["iterations"])
}

func TestArgsToAttrs_DanglingValue(t *testing.T) {
	attrs := argsToAttrs([]any{"k", 1, "dangling"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "k", attrs[0].Key)
	assert.Equal(t, "!BADKEY", attrs[1].Key)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l, _ := newBufferLogger(LogLevelInfo)
	assert.Same(t, l, OrNoOp(l))
}

func TestEvents(t *testing.T) {
	l, _ := newBufferLogger(LogLevelInfo)
	assert.Same(t, l, Events(l))

	buf := &bytes.Buffer{}
	plain := Events(NewSlogAdapter(slog.New(slog.NewJSONHandler(buf, nil))))
	plain.LogToolCall("lookup", time.Millisecond, false, errors.New("down"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "tool.call.failed", lines[0]["msg"])
	assert.Equal(t, "down", lines[0]["error"])

	assert.NotPanics(t, func() { Events(nil).LogTurn("info", 1, 1, time.Millisecond, "stop") })
}
