package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"", INFO, false},
		{"debug", DEBUG, false},
		{" WARN ", WARN, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"verbose", INFO, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatFieldsIsSorted(t *testing.T) {
	got := formatFields(map[string]interface{}{"b": 2, "a": "x"})
	if got != "{a=x, b=2}" {
		t.Fatalf("unexpected field rendering: %q", got)
	}
}

func TestFileLoggingWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n8ncord.log")
	if err := EnableFileLogging(path); err != nil {
		t.Fatalf("enable file logging: %v", err)
	}
	defer DisableFileLogging()

	InfoCF("relay", "session created", map[string]interface{}{FieldThreadID: "t1"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	if entry.Component != "relay" || entry.Message != "session created" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Fields[FieldThreadID] != "t1" {
		t.Fatalf("expected thread_id field, got %#v", entry.Fields)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n8ncord.log")
	if err := EnableFileLogging(path); err != nil {
		t.Fatalf("enable file logging: %v", err)
	}
	defer DisableFileLogging()

	prev := GetLevel()
	SetLevel(INFO)
	defer SetLevel(prev)

	DebugC("relay", "hidden")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected debug line to be filtered, got %q", data)
	}
}
