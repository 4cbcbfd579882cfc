package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "info", "JSON").Info("import validated", "rows", 3)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not JSON: %q", buf.String())
		}
		if entry["msg"] != "import validated" || entry["rows"] != 3.0 {
			t.Errorf("entry = %v", entry)
		}
	})

	t.Run("level filter", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "warn", "text")
		logger.Info("hidden")
		logger.Warn("shown")

		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestFromContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "text"))
	defer slog.SetDefault(prev)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	WithFields(ctx, "entity", "equipment").Info("template served")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-42") || !strings.Contains(out, "entity=equipment") {
		t.Errorf("output = %q", out)
	}
}
