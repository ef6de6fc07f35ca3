package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/quests", http.StatusOK, "level=INFO"},
		{"/api/quests", http.StatusConflict, "level=WARN"},
		{"/api/quests", http.StatusInternalServerError, "level=ERROR"},
		{"/health", http.StatusOK, "level=DEBUG"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tt.path, nil))

		out := buf.String()
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s %d: log = %q, want %s", tt.path, tt.status, out, tt.want)
		}
		if !strings.Contains(out, "path="+tt.path) {
			t.Errorf("log = %q, want path attr", out)
		}
	}
}

func TestStatusRecorderUnwrap(t *testing.T) {
	inner := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: inner, status: http.StatusOK}
	if rec.Unwrap() != inner {
		t.Error("Unwrap() did not return the wrapped writer")
	}
}
