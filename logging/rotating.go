package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const filePrefix = "assistant-"

// RotatingWriter writes to one log file per ISO week, starting a numbered
// sibling when the current file exceeds maxFileSize, and removes files older
// than the retention period. Rotation and retention both run inline on
// Write, guarded by the mutex; there is no background goroutine to manage.
type RotatingWriter struct {
	dir         string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	file        *os.File
	week        string
	size        int64
	seq         int
	lastCleanup time.Time
}

// NewRotatingWriter creates a writer rooted at dir. A retention of 0 weeks
// disables cleanup; a maxFileSize of 0 disables the size cap.
func NewRotatingWriter(dir string, retentionWeeks int, maxFileSize int64) *RotatingWriter {
	return &RotatingWriter{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
	}
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	week := weekKey(time.Now())
	switch {
	case w.file == nil || w.week != week:
		if err := w.open(week, 0); err != nil {
			return 0, err
		}
	case w.maxFileSize > 0 && w.size+int64(len(p)) > w.maxFileSize:
		if err := w.open(week, w.seq+1); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// open switches the current file to the given week/sequence (caller holds
// the lock) and opportunistically sweeps expired files once a day.
func (w *RotatingWriter) open(week string, seq int) error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			slog.Warn("Failed to close log file during rotation", "error", err)
		}
		w.file = nil
	}

	name := filePrefix + week + ".log"
	if seq > 0 {
		name = fmt.Sprintf("%s%s_%02d.log", filePrefix, week, seq)
	}

	path := filepath.Join(w.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.file = file
	w.week = week
	w.seq = seq
	w.size = 0
	if info, err := file.Stat(); err == nil {
		w.size = info.Size()
	}

	if w.retention > 0 && time.Since(w.lastCleanup) > 24*time.Hour {
		w.lastCleanup = time.Now()
		w.sweep()
	}
	return nil
}

// sweep removes log files older than the retention period.
func (w *RotatingWriter) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		slog.Warn("Failed to read log directory for cleanup", "error", err)
		return
	}

	cutoff := time.Now().Add(-w.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, name)); err == nil {
			removed++
		}
	}

	if removed > 0 {
		slog.Info("Cleaned up old log files", "removed", removed)
	}
}

// Close closes the current log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// setupLogger builds the process logger: text on stdout, JSON into the
// rotating file. When the log directory cannot be created, console-only.
func setupLogger(logDir string, retentionWeeks int, maxFileSize int64, level slog.Level) (*slog.Logger, *RotatingWriter) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory, logging to console only", "error", err, "dir", logDir)
		return logger, nil
	}

	writer := NewRotatingWriter(logDir, retentionWeeks, maxFileSize)
	fileHandler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), writer
}
