package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/dbsmedya/litemigrate/internal/config"
)

// newFileLogger returns a JSON logger writing to a temp file, plus a func
// that flushes it and returns the decoded entries.
func newFileLogger(t *testing.T, level string) (*Logger, func() []map[string]interface{}) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.log")
	log, err := New(&config.LoggingConfig{Level: level, Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return log, func() []map[string]interface{} {
		_ = log.Sync()
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()

		var entries []map[string]interface{}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var entry map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %q", scanner.Text())
			}
			entries = append(entries, entry)
		}
		return entries
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewDefault(t *testing.T) {
	log := NewDefault()
	if log == nil {
		t.Fatal("NewDefault() returned nil")
	}
	if !log.Desugar().Core().Enabled(zapcore.InfoLevel) {
		t.Error("default logger should log at info")
	}
	if log.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("default logger should not log at debug")
	}
}

func TestLevelFiltering(t *testing.T) {
	log, read := newFileLogger(t, "warn")
	log.Infow("Stage started", "tables", 3)
	log.Warnw("Foreign key hit a lock conflict, retrying", "constraint", "fk_a_1")

	entries := read()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry at warn level, got %d", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[0]["constraint"] != "fk_a_1" {
		t.Errorf("unexpected entry %v", entries[0])
	}
}

func TestWithStageAndTable(t *testing.T) {
	log, read := newFileLogger(t, "info")

	stage := log.WithStage("copy")
	stage.WithTable("orders").Infow("Copied table", "rows", 12)
	stage.Infow("Stage finished")

	entries := read()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first["stage"] != "copy" || first["table"] != "orders" || first["rows"] != float64(12) {
		t.Errorf("table entry missing context: %v", first)
	}
	second := entries[1]
	if second["stage"] != "copy" {
		t.Errorf("stage entry missing stage: %v", second)
	}
	if _, ok := second["table"]; ok {
		t.Errorf("table context leaked to the parent logger: %v", second)
	}
}

func TestWithFields(t *testing.T) {
	log, read := newFileLogger(t, "debug")
	log.WithFields(map[string]interface{}{"target": "postgres", "workers": 4}).Debugw("Starting migration")

	entries := read()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["target"] != "postgres" || entries[0]["workers"] != float64(4) {
		t.Errorf("fields missing: %v", entries[0])
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.WithStage("constraints").WithTable("orders").Errorw("discarded", "error", "boom")
	if log.Desugar().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("nop logger should not be enabled at any level")
	}
	if err := log.Sync(); err != nil {
		t.Errorf("Sync() on nop logger returned %v", err)
	}
}

func TestBuildEncoder(t *testing.T) {
	if buildEncoder("json") == nil {
		t.Error("json encoder is nil")
	}
	if buildEncoder("text") == nil {
		t.Error("text encoder is nil")
	}
}

func TestBuildWritersUnwritableFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "migrate.log")
	if w := buildWriters(path); w == nil {
		t.Fatal("expected a stderr fallback writer")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no log file to be created, stat error %v", err)
	}
}
