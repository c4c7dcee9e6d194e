// Package logging wraps log/slog with a process-wide logger that writes text
// to the console and JSON to weekly rotating files.
package logging

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/giygas/pharmacy-notifier/config"
)

// LoggingService owns the global logger and its file writer
type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

// DefaultLoggingService is the logger behind the package-level functions
var DefaultLoggingService *LoggingService

var (
	fallbackOnce sync.Once
	fallback     *slog.Logger
)

// Options configure InitLoggerWithOptions
type Options struct {
	// Dir holds the rotating files; empty logs to the console only
	Dir            string
	Env            config.Environment
	Level          string
	Verbose        bool
	RetentionWeeks int
	MaxFileSize    int64
}

// InitLogger initializes the global logger with development defaults
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{
		Dir:            logDir,
		Env:            config.EnvDevelopment,
		Level:          "info",
		RetentionWeeks: 4,
		MaxFileSize:    defaultMaxFileSize,
	})
}

// InitLoggerWithOptions replaces the global logger, closing the previous file
func InitLoggerWithOptions(opts Options) {
	if DefaultLoggingService != nil {
		_ = DefaultLoggingService.Close()
	}

	DefaultLoggingService = newLoggingService(opts)
	slog.SetDefault(DefaultLoggingService.Logger)
}

func newLoggingService(opts Options) *LoggingService {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.Dir == "" {
		return &LoggingService{Logger: slog.New(console)}
	}

	if opts.RetentionWeeks <= 0 {
		opts.RetentionWeeks = 4
	}
	file := NewRotatingLoggerWithSizeLimit(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err := file.open(); err != nil {
		// Keep running on the console if the log directory is unusable
		logger := slog.New(console)
		logger.Error("Failed to initialize rotating logger", "dir", opts.Dir, "error", err)
		return &LoggingService{Logger: logger}
	}
	file.startCleanup(24 * time.Hour)

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})

	return &LoggingService{
		Logger: slog.New(&multiHandler{handlers: []slog.Handler{console, fileHandler}}),
		file:   file,
	}
}

// Close flushes and closes the log file, if any
func (s *LoggingService) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Logger returns the global logger, or a console logger before initialization
func Logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return fallback
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
