package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := GlobalLogger
	var buf bytes.Buffer
	SetupLogger("production", "debug", &buf)
	t.Cleanup(func() {
		GlobalLogger = prev
		slog.SetDefault(prev.Logger)
	})
	return &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		out = append(out, rec)
	}
	return out
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestLogger_ContextValues(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithUserID(WithCorrelationID(context.Background(), "req-1"), "u1")
	GlobalLogger.InfoContext(ctx, "hello")
	GlobalLogger.InfoContext(context.Background(), "anonymous")

	recs := records(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "req-1", recs[0]["correlation_id"])
	assert.Equal(t, "u1", recs[0]["user_id"])
	assert.NotContains(t, recs[1], "user_id")
	assert.NotContains(t, recs[1], "correlation_id")
}

func TestRepoLogger(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.Background()

	repo := NewRepoLogger("posts")
	repo.LogCreate(ctx, map[string]interface{}{"rows": 2})
	repo.LogRead(ctx, nil)
	repo.LogUpdate(ctx, nil)
	repo.LogError(ctx, errors.New("boom"), "select")

	recs := records(t, buf)
	require.Len(t, recs, 4)
	assert.Equal(t, "repository create", recs[0]["msg"])
	assert.Equal(t, "posts", recs[0]["table"])
	assert.Equal(t, float64(2), recs[0]["rows"])
	assert.Equal(t, "repository read", recs[1]["msg"])
	assert.Equal(t, "repository update", recs[2]["msg"])
	assert.Equal(t, "ERROR", recs[3]["level"])
	assert.Equal(t, "select", recs[3]["operation"])
	assert.Equal(t, "boom", recs[3]["error"])
}

func TestAsyncOperationLogs(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.Background()
	fields := map[string]interface{}{"posts": 3}

	LogAsyncOperationStart(ctx, "load_like_counts", fields)
	LogAsyncOperationEnd(ctx, "load_like_counts", fields)
	LogAsyncOperationError(ctx, "load_like_counts", errors.New("offline"), fields)

	recs := records(t, buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "async_start", recs[0]["type"])
	assert.Equal(t, "async_end", recs[1]["type"])
	assert.Equal(t, "async_error", recs[2]["type"])
	assert.Equal(t, "offline", recs[2]["error"])
	for _, rec := range recs {
		assert.Equal(t, "load_like_counts", rec["operation"])
		assert.Equal(t, float64(3), rec["posts"])
	}
}

func TestTraceRepositoryMethod(t *testing.T) {
	rec := recordSpans(t)

	_, span := TraceRepositoryMethod(context.Background(), "select", "posts", "sqlite")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "repository.select", ended[0].Name())
	attrs := ended[0].Attributes()
	assert.Contains(t, attrs, attribute.String("db.system", "sqlite"))
	assert.Contains(t, attrs, attribute.String("db.operation", "select"))
	assert.Contains(t, attrs, attribute.String("db.table", "posts"))
}

func TestSpan_TraceID(t *testing.T) {
	recordSpans(t)

	span, _ := StartGatewaySpan(context.Background(), "select", "posts")
	defer span.End()
	id := span.TraceID()
	assert.Len(t, id, 32)
	assert.NotEqual(t, strings.Repeat("0", 32), id)

	assert.Empty(t, (&Span{}).TraceID())
}
