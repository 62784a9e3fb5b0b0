package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
)

// runtimeLogger drives one charm logger over a console sink and a
// durable file sink. The console sink can be muted while the TUI owns
// the terminal; the file sink always receives events.
type runtimeLogger struct {
	base   *charmLog.Logger
	writer *sinkWriter
	file   *os.File
}

// sinkWriter fans writes to the file sink and, when enabled, the
// console sink.
type sinkWriter struct {
	mu             sync.Mutex
	console        io.Writer
	file           io.Writer
	consoleEnabled bool
}

// Write implements io.Writer.
func (w *sinkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_, _ = w.file.Write(p)
	}
	if w.consoleEnabled && w.console != nil {
		_, _ = w.console.Write(p)
	}
	return len(p), nil
}

// setConsoleEnabled toggles the console sink.
func (w *sinkWriter) setConsoleEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consoleEnabled = enabled
}

// newRuntimeLogger opens the log file sink and configures the logger.
// Dev mode lowers the level to debug.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, logPath string) (*runtimeLogger, error) {
	if stderr == nil {
		stderr = io.Discard
	}

	var file *os.File
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		opened, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = opened
	}

	writer := &sinkWriter{console: stderr, consoleEnabled: true}
	if file != nil {
		writer.file = file
	}

	level := charmLog.InfoLevel
	if devMode {
		level = charmLog.DebugLevel
	}
	base := charmLog.NewWithOptions(writer, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})

	return &runtimeLogger{base: base, writer: writer, file: file}, nil
}

// SetConsoleEnabled toggles whether runtime events reach the terminal.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.writer.setConsoleEnabled(enabled)
}

// Close closes the file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
