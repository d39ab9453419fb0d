// Package logging provides the process-wide slog logger: text to console,
// JSON to a size-capped weekly rotating file, with package-level helpers
// that degrade to stderr when the logger was never initialized.
package logging

import (
	"log/slog"
	"os"
)

type LoggingService struct {
	Logger *slog.Logger
	writer *RotatingWriter
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger. Retention is expressed in
// weeks; maxFileSize caps one log file in bytes before a numbered sibling
// is started.
func InitLogger(logDir string, retentionWeeks int, maxFileSize int64, level slog.Level) {
	logger, writer := setupLogger(logDir, retentionWeeks, maxFileSize, level)
	DefaultLoggingService = &LoggingService{Logger: logger, writer: writer}
	slog.SetDefault(logger)
}

// CloseLogger flushes and closes the rotating file, if any.
func CloseLogger() {
	if DefaultLoggingService != nil && DefaultLoggingService.writer != nil {
		if err := DefaultLoggingService.writer.Close(); err != nil {
			slog.Warn("Failed to close log writer", "error", err)
		}
	}
}

func log(level slog.Level, msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		fallback := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		fallback.Log(nil, level, msg, args...)
		return
	}
	DefaultLoggingService.Logger.Log(nil, level, msg, args...)
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	log(slog.LevelInfo, msg, args...)
}

func Error(msg string, args ...any) {
	log(slog.LevelError, msg, args...)
}

func Warn(msg string, args ...any) {
	log(slog.LevelWarn, msg, args...)
}

func Debug(msg string, args ...any) {
	log(slog.LevelDebug, msg, args...)
}
