package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/exchange/internal/logging"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "text"))
	defer slog.SetDefault(prev)

	tests := []struct {
		name   string
		status int
		body   string
		want   []string
	}{
		{name: "ok", status: 0, body: "hello", want: []string{"level=INFO", "status=200", "bytes=5"}},
		{name: "client error", status: http.StatusNotFound, want: []string{"level=WARN", "status=404"}},
		{name: "server error", status: http.StatusBadGateway, want: []string{"level=ERROR", "status=502"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte(tt.body))
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/entities", nil))

			out := buf.String()
			for _, want := range append(tt.want, "path=/api/entities") {
				if !strings.Contains(out, want) {
					t.Errorf("log %q missing %q", out, want)
				}
			}
		})
	}
}
