package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/natefinch/lumberjack.v2"

	"labelcam/internal/config"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()

	var console bytes.Buffer
	l := &Logger{
		logDir: t.TempDir(),
		files:  make(map[string]*lumberjack.Logger),
	}
	l.setupLoggers(&console, &console)
	t.Cleanup(func() { l.Close() })
	return l, &console
}

func readLog(t *testing.T, l *Logger, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(l.Dir(), name))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestNewLogger_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected log directory to exist: %v", err)
	}
}

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	l, console := newTestLogger(t)

	l.Info("model %s ready", "ssd")
	l.Warning("skipped tick %d", 3)
	l.Error("detect failed: %v", "boom")

	if got := readLog(t, l, InfoFile); !strings.Contains(got, "model ssd ready") {
		t.Errorf("info.log missing entry: %q", got)
	}
	if got := readLog(t, l, WarningFile); !strings.Contains(got, "skipped tick 3") {
		t.Errorf("warning.log missing entry: %q", got)
	}
	if got := readLog(t, l, ErrorFile); !strings.Contains(got, "detect failed: boom") {
		t.Errorf("error.log missing entry: %q", got)
	}
	if strings.Contains(readLog(t, l, InfoFile), "boom") {
		t.Error("error entry leaked into info.log")
	}
	if !strings.Contains(console.String(), "model ssd ready") {
		t.Errorf("console missing entry: %q", console.String())
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l, _ := newTestLogger(t)

	l.Warning("first")
	if err := l.CleanLogs(WarningFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readLog(t, l, WarningFile); got != "" {
		t.Errorf("Expected empty warning.log, got %q", got)
	}

	l.Warning("second")
	if got := readLog(t, l, WarningFile); !strings.Contains(got, "second") || strings.Contains(got, "first") {
		t.Errorf("Unexpected warning.log after clean: %q", got)
	}
}

func TestLogger_CleanLogsUnknownFile(t *testing.T) {
	l, _ := newTestLogger(t)

	if err := l.CleanLogs("debug.log"); err == nil {
		t.Error("Expected error for unknown log file")
	}
}
