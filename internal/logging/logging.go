// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/runnerr0/detox/internal/config"
)

// Logger is a slog.Logger plus whatever needs closing when the process exits.
type Logger struct {
	slog.Logger
	closers []io.Closer
}

// Close flushes and closes the rotated log file, if any.
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New returns a human-format logger writing to the configured rotated file
// and, when stderr is non-nil, to stderr as well. Stdout is never used:
// native messaging owns it.
func New(cfg *config.Config, stderr io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	var sinks []slog.Sink
	l := &Logger{}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		}
		sinks = append(sinks, sloghuman.Sink(file))
		l.closers = append(l.closers, file)
	}
	if stderr != nil {
		sinks = append(sinks, sloghuman.Sink(stderr))
	}

	l.Logger = slog.Make(sinks...).Leveled(level)
	return l, nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
