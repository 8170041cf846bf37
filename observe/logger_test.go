package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_IncludesEndpointFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithEndpoint(EndpointMeta{
		Name:   "login",
		Method: "POST",
		Path:   "/login/",
	})

	logger.Info(context.Background(), "hello")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["api.endpoint"] != "login" {
		t.Errorf("api.endpoint = %v, want login", e["api.endpoint"])
	}
	if e["http.method"] != "POST" {
		t.Errorf("http.method = %v, want POST", e["http.method"])
	}
	if e["http.path"] != "/login/" {
		t.Errorf("http.path = %v, want /login/", e["http.path"])
	}
	if e["level"] != "info" || e["msg"] != "hello" {
		t.Errorf("unexpected entry %v", e)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	ctx := context.Background()
	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("levels = %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "credentials",
		F("password", "hunter2"),
		F("refresh", "r1"),
		F("Authorization", "Bearer a1"),
		F("username", "jane"),
	)

	out := buf.String()
	for _, secret := range []string{"hunter2", "r1", "Bearer a1"} {
		if strings.Contains(out, secret) {
			t.Errorf("log output leaked %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "jane") {
		t.Errorf("expected non-sensitive field in output: %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "nothing")
	if l.WithEndpoint(EndpointMeta{Name: "x"}) == nil {
		t.Error("WithEndpoint on nop logger returned nil")
	}
}
