package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/pharmacy-notifier/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetConsoleLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		env         config.Environment
		logLevelStr string
		verbose     bool
		expected    slog.Level
	}{
		{"dev defaults to info", config.EnvDevelopment, "", false, slog.LevelInfo},
		{"test quiet defaults to error", config.EnvTest, "", false, slog.LevelError},
		{"test verbose defaults to info", config.EnvTest, "", true, slog.LevelInfo},
		{"prod defaults to warn", config.EnvProduction, "", false, slog.LevelWarn},
		{"staging defaults to warn", config.EnvStaging, "", false, slog.LevelWarn},
		{"prod with debug override", config.EnvProduction, "debug", false, slog.LevelDebug},
		{"dev with error override", config.EnvDevelopment, "error", false, slog.LevelError},
		{"test with debug override (ignored)", config.EnvTest, "debug", false, slog.LevelError},
		{"test with debug override (ignored) verbose", config.EnvTest, "debug", true, slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetConsoleLogLevel(tt.env, tt.logLevelStr, tt.verbose)
			if got != tt.expected {
				t.Errorf("GetConsoleLogLevel(%v, %q, %v) = %v, want %v", tt.env, tt.logLevelStr, tt.verbose, got, tt.expected)
			}
		})
	}
}

func TestGetFileLogLevel(t *testing.T) {
	if got := GetFileLogLevel(); got != slog.LevelDebug {
		t.Errorf("GetFileLogLevel() = %v, want %v", got, slog.LevelDebug)
	}
}

// resetForTest installs a fresh global logger and restores the previous one
func resetForTest(t *testing.T, opts Options) {
	t.Helper()
	previous := DefaultLoggingService
	DefaultLoggingService = nil
	InitLoggerWithOptions(opts)
	t.Cleanup(func() {
		_ = DefaultLoggingService.Close()
		DefaultLoggingService = previous
		if previous != nil {
			slog.SetDefault(previous.Logger)
		}
	})
}

func TestInitLoggerWritesJSONToWeeklyFile(t *testing.T) {
	dir := t.TempDir()
	resetForTest(t, Options{Dir: dir, Env: config.EnvTest, RetentionWeeks: 2, MaxFileSize: 1024 * 1024})

	Info("Info message", "unread", 3)
	Warn("Warning message")
	Error("Error message")
	Debug("Debug message")

	path := filepath.Join(dir, FilePrefix+getWeekKey(time.Now())+".log")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file %s: %v", path, err)
	}

	for _, want := range []string{`"msg":"Info message"`, `"unread":3`, `"msg":"Debug message"`} {
		if !strings.Contains(string(content), want) {
			t.Errorf("Expected %s in log file, got: %s", want, content)
		}
	}
}

func TestInitLoggerWithoutDirectoryIsConsoleOnly(t *testing.T) {
	resetForTest(t, Options{Env: config.EnvTest})

	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		t.Fatal("Expected a console logger")
	}
	if DefaultLoggingService.file != nil {
		t.Error("Expected no file writer without a directory")
	}
	Info("console only")
}

func TestInitLoggerUnusableDirectoryFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	resetForTest(t, Options{Dir: filepath.Join(blocker, "logs"), Env: config.EnvTest})

	if DefaultLoggingService.file != nil {
		t.Error("Expected console fallback when the directory cannot be created")
	}
}

func TestLoggerBeforeInit(t *testing.T) {
	previous := DefaultLoggingService
	DefaultLoggingService = nil
	defer func() { DefaultLoggingService = previous }()

	if Logger() == nil {
		t.Fatal("Expected fallback logger")
	}
	Warn("logged before initialization")
}
