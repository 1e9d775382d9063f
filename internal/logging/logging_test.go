package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	} {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_WritesJSONWithBaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "landedcost", "test")

	logger.Info("dropped")
	logger.Warn("kept", "route", "rail")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["service"] != "landedcost" || entry["environment"] != "test" || entry["route"] != "rail" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
