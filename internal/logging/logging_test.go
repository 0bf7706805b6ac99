package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer
	oldLogger := defaultLogger
	defaultLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	f()
	defaultLogger = oldLogger
	return buf.String()
}

func decodeLine(t *testing.T, output string) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(strings.Split(strings.TrimSpace(output), "\n")[0])
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, output)
	}
	return m
}

func TestInitLoggerTo(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		format    Format
		logDebug  bool
		wantEmpty bool
		wantJSON  bool
	}{
		{name: "debug json", level: LevelDebug, format: FormatJSON, logDebug: true, wantJSON: true},
		{name: "info drops debug", level: LevelInfo, format: FormatJSON, logDebug: true, wantEmpty: true},
		{name: "info text", level: LevelInfo, format: FormatText},
		{name: "invalid level falls back to info", level: Level(999), format: FormatJSON, wantJSON: true},
	}
	defer InitLogger(LevelInfo, FormatJSON)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitLoggerTo(&buf, tt.level, tt.format)
			if tt.logDebug {
				Debug("hello", "k", "v")
			} else {
				Info("hello", "k", "v")
			}
			out := buf.String()
			if tt.wantEmpty {
				if out != "" {
					t.Errorf("expected no output, got %q", out)
				}
				return
			}
			if !strings.Contains(out, "hello") {
				t.Errorf("expected message in output, got %q", out)
			}
			if tt.wantJSON {
				decodeLine(t, out)
			} else if !strings.Contains(out, "k=v") {
				t.Errorf("expected text attrs, got %q", out)
			}
		})
	}
}

func TestReplaceAttrTimestamp(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, LevelInfo, FormatJSON)
	defer InitLogger(LevelInfo, FormatJSON)

	Info("ts")
	m := decodeLine(t, buf.String())
	ts, ok := m["time"].(string)
	if !ok {
		t.Fatalf("time attr missing: %v", m)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC3339: %v", ts, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(text) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) expected error")
	}
}

func TestContextIDs(t *testing.T) {
	ctx := WithPageID(WithRequestID(context.Background(), "req-1"), "page-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetPageID(ctx); got != "page-1" {
		t.Errorf("GetPageID() = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID(empty) = %q", got)
	}

	output := captureLogOutput(func() {
		InfoContext(ctx, "with ids")
	})
	m := decodeLine(t, output)
	if m["request_id"] != "req-1" || m["page_id"] != "page-1" {
		t.Errorf("context attrs missing: %v", m)
	}
}

func TestDomainEvents(t *testing.T) {
	tests := []struct {
		name    string
		log     func()
		wantMsg string
		wantKey string
	}{
		{"dictionary", func() { DictionaryLoaded("files", 3, 2) }, "dictionary_loaded", "total"},
		{"scan", func() { ScanComplete(context.Background(), 4, time.Millisecond) }, "scan_complete", "found"},
		{"annotation", func() { AnnotationChange("enable", 2, 1, 5) }, "annotation_change", "elements"},
		{"websocket", func() { WebSocketEvent("connect", 1) }, "websocket_event", "client_count"},
		{"startup", func() { ServerStartup(":8080") }, "server_startup", "addr"},
		{"security", func() { SecurityEvent("origin_rejected", "cors") }, "security_event", "component"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decodeLine(t, captureLogOutput(tt.log))
			if m["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %s", m["msg"], tt.wantMsg)
			}
			if _, ok := m[tt.wantKey]; !ok {
				t.Errorf("expected key %q in %v", tt.wantKey, m)
			}
		})
	}
}

func TestDictionaryLoadedTotal(t *testing.T) {
	m := decodeLine(t, captureLogOutput(func() { DictionaryLoaded("files", 3, 2) }))
	if m["total"] != float64(5) {
		t.Errorf("total = %v, want 5", m["total"])
	}
}

func TestResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("gone"))
	if err != nil || n != 4 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", rw.statusCode)
	}
	if rw.bytes != 4 {
		t.Errorf("bytes = %d, want 4", rw.bytes)
	}
	if recorder.Code != http.StatusNotFound {
		t.Errorf("recorder code = %d", recorder.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		existing string
	}{
		{name: "generated", existing: ""},
		{name: "propagated", existing: "abc-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.existing != "" {
				req.Header.Set(RequestIDHeader, tt.existing)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Errorf("header %q, context %q", got, seen)
			}
			if tt.existing != "" && got != tt.existing {
				t.Errorf("request ID = %q, want %q", got, tt.existing)
			}
			if tt.existing == "" && len(got) != 36 {
				t.Errorf("generated request ID %q is not a UUID", got)
			}
		})
	}
}

func TestCombinedMiddleware(t *testing.T) {
	output := captureLogOutput(func() {
		h := CombinedMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("ok"))
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/pages", nil))
	})
	m := decodeLine(t, output)
	if m["msg"] != "http_request" {
		t.Fatalf("msg = %v", m["msg"])
	}
	if m["status_code"] != float64(http.StatusCreated) {
		t.Errorf("status_code = %v", m["status_code"])
	}
	if m["bytes"] != float64(2) {
		t.Errorf("bytes = %v", m["bytes"])
	}
	if m["request_id"] == nil {
		t.Error("request_id missing")
	}
}
