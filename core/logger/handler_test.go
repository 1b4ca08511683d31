package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func flushLine(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)

	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithEventMeta(ctx, "line", "U42", "evt-1")

	log := slog.New(handler).With("component", "answer")
	LogEvent(ctx, log, slog.LevelInfo, "answer.transition",
		slog.String("status", "OK"),
		slog.String("command", "done"),
	)

	tokens := strings.Split(flushLine(t, aw, buf), " ")
	expected := []string{"ts=", "level=INFO", "component=answer", "event=answer.transition", "status=ok", "rid=rid-123", "platform=line", "user_id=U42", "event_id=evt-1", "command=done"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, expected prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)

	ctx := WithRID(context.Background(), "11:22:33")
	log := slog.New(handler).With("component", "line")
	LogEvent(ctx, log, slog.LevelError, "reply.fail",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Duration("duration", 1500*time.Microsecond),
	)

	line := flushLine(t, aw, buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"line"`, `"event":"reply.fail"`, `"status":"fail"`, `"rid":"` + CompactRID("11:22:33") + `"`, `"rid_full":"11:22:33"`, `"duration_ms":2`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greater(t, idx, pos, "prefix %s not found in order within %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerDropsUnknownOutcomeAndEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)

	slog.New(handler).Info("plain message",
		slog.String("outcome", "weird"),
		slog.String("payload", "  "),
		slog.Any("selected", []string{"A", "free:x"}),
	)

	line := flushLine(t, aw, buf)
	assert.Contains(t, line, "event=\"plain message\"")
	assert.Contains(t, line, "component=app")
	assert.Contains(t, line, "selected=A,free:x")
	assert.NotContains(t, line, "outcome=")
	assert.NotContains(t, line, "payload=")
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	slog.New(handler).Debug("hidden")
	require.NoError(t, aw.Close())
	assert.Empty(t, buf.String())
}

func TestWriterRejectsAfterClose(t *testing.T) {
	aw := newAsyncWriter([]io.Writer{io.Discard}, 0)
	require.NoError(t, aw.Close())
	assert.ErrorIs(t, aw.Write([]byte("x")), errWriterClosed)
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.10.1", CompactRID("35:36:1"))
	uuidRID := NewRID()
	assert.Equal(t, uuidRID, CompactRID(uuidRID))
	assert.Equal(t, "a:b", CompactRID("a:b"))
	assert.Equal(t, "", CompactRID("  "))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "日本", SanitizeLimit("日本語", 2))
	assert.Equal(t, "", SanitizeLimit("x", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	n, d := parseRatioSpec("2/5")
	assert.Equal(t, [2]int{2, 5}, [2]int{n, d})
	n, d = parseRatioSpec("10")
	assert.Equal(t, [2]int{1, 10}, [2]int{n, d})
	n, d = parseRatioSpec("x/y")
	assert.Equal(t, [2]int{0, 0}, [2]int{n, d})
}
