package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, "session-scheduler")
	logger.Info("dropped")
	logger.Warn("kept", "session_id", "s1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "kept" || record["service_name"] != "session-scheduler" || record["session_id"] != "s1" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestFromContextOr(t *testing.T) {
	t.Parallel()

	ctxLogger := Discard()
	fallback := Discard()

	t.Run("context logger wins", func(t *testing.T) {
		t.Parallel()
		ctx := ContextWithLogger(context.Background(), ctxLogger)
		if got := FromContextOr(ctx, fallback); got != ctxLogger {
			t.Fatalf("expected the context logger")
		}
	})

	t.Run("fallback", func(t *testing.T) {
		t.Parallel()
		if got := FromContextOr(context.Background(), fallback); got != fallback {
			t.Fatalf("expected the fallback logger")
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		if got := FromContextOr(context.Background(), nil); got != slog.Default() {
			t.Fatalf("expected slog.Default")
		}
	})

	t.Run("nil logger is not stored", func(t *testing.T) {
		t.Parallel()
		ctx := ContextWithLogger(context.Background(), nil)
		if FromContext(ctx) != nil {
			t.Fatalf("expected no logger in context")
		}
	})
}
