package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestLogger(t *testing.T, level zapcore.Level) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		NameKey:     "logger",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zap.NewAtomicLevelAt(level),
	)

	return FromZap(zap.New(core)), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	testLogger, buf := newTestLogger(t, zapcore.DebugLevel)

	testLogger.Debug("debug message")
	testLogger.Info("info message")
	testLogger.Warn("warning message")
	testLogger.Error("error message")

	entries := decodeLines(t, buf)
	if len(entries) != 4 {
		t.Fatalf("Expected 4 log entries, got %d", len(entries))
	}

	wantLevels := []string{"debug", "info", "warn", "error"}
	for i, want := range wantLevels {
		if entries[i]["level"] != want {
			t.Errorf("Entry %d: expected level %q, got %v", i, want, entries[i]["level"])
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	testLogger, buf := newTestLogger(t, zapcore.WarnLevel)

	testLogger.Debug("hidden")
	testLogger.Info("hidden too")
	testLogger.Warn("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("Messages below the configured level should be dropped")
	}
	if !strings.Contains(output, "visible") {
		t.Error("Warn message not found in logs")
	}
}

func TestLoggerWithFields(t *testing.T) {
	testLogger, buf := newTestLogger(t, zapcore.DebugLevel)

	testLogger.Info("session opened", Fields{"session_id": "abc", "attempt": 1})
	testLogger.With(Fields{"component": "resolver"}).Named("endpoint").Warn("dev override")

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	if entries[0]["session_id"] != "abc" {
		t.Errorf("Expected session_id field, got %v", entries[0])
	}
	if entries[1]["component"] != "resolver" || entries[1]["logger"] != "endpoint" {
		t.Errorf("Expected component and logger name, got %v", entries[1])
	}
}

func TestWithEmptyFields(t *testing.T) {
	testLogger, _ := newTestLogger(t, zapcore.InfoLevel)
	if testLogger.With(nil) != testLogger {
		t.Error("With(nil) should return the same logger")
	}
	if testLogger.With(Fields{}) != testLogger {
		t.Error("With(empty) should return the same logger")
	}
}

func TestLoggerFormattedMessages(t *testing.T) {
	testLogger, buf := newTestLogger(t, zapcore.InfoLevel)

	testLogger.Infof("listening on %s", ":2718")
	testLogger.Errorf("rename failed: %d", 500)

	output := buf.String()
	if !strings.Contains(output, "listening on :2718") {
		t.Error("Formatted info message not found")
	}
	if !strings.Contains(output, "rename failed: 500") {
		t.Error("Formatted error message not found")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigs(t *testing.T) {
	def := DefaultConfig()
	if def.Level != InfoLevel || def.Development {
		t.Errorf("Unexpected default config %+v", def)
	}

	dev := DevelopmentConfig()
	if dev.Level != DebugLevel || !dev.Development {
		t.Errorf("Unexpected development config %+v", dev)
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{
		Level:         ErrorLevel,
		OutputPaths:   []string{"stderr"},
		InitialFields: Fields{"service": "cosmic"},
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if logger.Zap() == nil {
		t.Fatal("Expected an underlying zap logger")
	}
	if !logger.Zap().Core().Enabled(zapcore.ErrorLevel) || logger.Zap().Core().Enabled(zapcore.InfoLevel) {
		t.Error("Logger should only be enabled from error level")
	}
}

func TestDefaultLogger(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	custom := NewNop()
	SetDefault(custom)
	if Default() != custom {
		t.Error("SetDefault should replace the default logger")
	}

	SetDefault(nil)
	if Default() == nil {
		t.Error("Default should never return nil")
	}
}
