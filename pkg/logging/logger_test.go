package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" info ", InfoLevel},
		{"Warn", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJSONLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Warn("endpoint unresolved", RelationID("r1"), AssetID("a9"), Count(2))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry.Level != "WARN" {
		t.Errorf("level = %s, want WARN", entry.Level)
	}
	if entry.Message != "endpoint unresolved" {
		t.Errorf("msg = %s", entry.Message)
	}
	if entry.Fields["relation_id"] != "r1" || entry.Fields["asset_id"] != "a9" {
		t.Errorf("fields = %v", entry.Fields)
	}
	if entry.Fields["count"] != float64(2) {
		t.Errorf("count = %v", entry.Fields["count"])
	}
}

func TestJSONLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("router pass")
	logger.Info("loaded")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}

	logger.Error("request failed", Error(errors.New("boom")))
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("missing error field: %q", buf.String())
	}
}

func TestWithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSONLogger(&buf, ErrorLevel)
	child := root.With(Component("router"))

	child.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("child should inherit ERROR level")
	}

	root.SetLevel(DebugLevel)
	child.Info("visible")
	if !strings.Contains(buf.String(), `"component":"router"`) {
		t.Errorf("child fields missing: %q", buf.String())
	}
	if child.GetLevel() != DebugLevel {
		t.Errorf("child level = %v, want DEBUG", child.GetLevel())
	}
}

func TestTimedOperation(t *testing.T) {
	mem := NewMemoryLogger()
	op := StartTimer(mem, "router pass", Component("router"))
	time.Sleep(time.Millisecond)
	if d := op.End(Count(3)); d <= 0 {
		t.Errorf("duration = %v", d)
	}

	entries := mem.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Error("latency field missing")
	}
	if entries[0].Fields["count"] != 3 {
		t.Errorf("count = %v", entries[0].Fields["count"])
	}
}

func TestMemoryLoggerChildrenShareEntries(t *testing.T) {
	mem := NewMemoryLogger()
	child := mem.With(Component("store"))
	child.Warn("consistency conflict", AssetID("a1"))
	mem.Info("ready")

	if got := mem.Count(WarnLevel, "consistency conflict"); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
	entries := mem.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Fields["component"] != "store" {
		t.Errorf("component = %v", entries[0].Fields["component"])
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NewNopLogger()
	l.Error("ignored")
	if l.With(Component("x")) == nil {
		t.Error("With returned nil")
	}
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) returned nil")
	}
}
