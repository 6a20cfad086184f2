// Package logging configures the process-wide slog logger and exposes
// package-level helpers that are safe to call before initialisation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggingService owns the configured logger and the file it writes to.
type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingFile
}

var DefaultLoggingService *LoggingService

// Options controls where and how much the service logs.
type Options struct {
	Dir            string // empty disables the file sink
	RetentionWeeks int
	MaxFileSize    int64
	ConsoleLevel   slog.Level
	FileLevel      slog.Level
	Console        io.Writer // defaults to os.Stdout
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLoggingService builds a logger writing text to the console and JSON to a
// rotating file. When the log directory cannot be used the service degrades to
// console only and reports why.
func NewLoggingService(opts Options) *LoggingService {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: opts.ConsoleLevel})

	if opts.Dir == "" {
		return &LoggingService{Logger: slog.New(consoleHandler)}
	}

	rf, err := OpenRotatingFile(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("File logging disabled", "dir", opts.Dir, "error", err)
		return &LoggingService{Logger: logger}
	}

	fileHandler := slog.NewJSONHandler(rf, &slog.HandlerOptions{Level: opts.FileLevel})
	return &LoggingService{
		Logger: slog.New(newFanout(consoleHandler, fileHandler)),
		file:   rf,
	}
}

// Close releases the log file, if any.
func (s *LoggingService) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// InitLogger installs the global logger and makes it the slog default.
func InitLogger(opts Options) {
	DefaultLoggingService = NewLoggingService(opts)
	slog.SetDefault(DefaultLoggingService.Logger)
}

// Close shuts down the global logging service.
func Close() error {
	return DefaultLoggingService.Close()
}

func logger(fallbackLevel slog.Level) *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: fallbackLevel}))
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	logger(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger(slog.LevelDebug).Debug(msg, args...)
}
