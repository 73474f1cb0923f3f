package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Logger is the public logger instance accessible from all packages.
// It discards output until Initialize enables debug logging.
var Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// Options selects where debug logs go
type Options struct {
	Debug bool
	// Dir receives one uuid-named file per run, pruned to MaxLogFiles.
	Dir string
	// File overrides Dir with a fixed path that is never pruned.
	File        string
	MaxLogFiles int
}

// Initialize points Logger at a JSON log file, or discards everything when
// debug logging is off. It returns the file path, empty when disabled.
func Initialize(opts Options) (string, error) {
	if !opts.Debug && opts.File == "" {
		Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		return "", nil
	}

	logFilePath := opts.File
	if logFilePath == "" {
		if opts.MaxLogFiles > 0 {
			if err := rotateLogs(opts.Dir, opts.MaxLogFiles); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
			}
		}
		logFilePath = filepath.Join(opts.Dir, uuid.NewString()+".log")
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	Logger = slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Logger.Info("Debug logging initialized", "log_file", logFilePath, "pid", os.Getpid())
	return logFilePath, nil
}

type logFileInfo struct {
	path    string
	modTime time.Time
}

// rotateLogs deletes the oldest .log files so that, with the file about to
// be created, at most maxLogFiles remain.
func rotateLogs(logDir string, maxLogFiles int) error {
	entries, err := os.ReadDir(logDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	var logFiles []logFileInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logFiles = append(logFiles, logFileInfo{
			path:    filepath.Join(logDir, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	if len(logFiles) < maxLogFiles {
		return nil
	}

	slices.SortFunc(logFiles, func(a, b logFileInfo) int {
		return a.modTime.Compare(b.modTime)
	})
	for _, f := range logFiles[:len(logFiles)-maxLogFiles+1] {
		if err := os.Remove(f.path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to delete old log file %s: %v\n", f.path, err)
		}
	}
	return nil
}
