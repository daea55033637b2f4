// Package logging builds the structured logger used by presenced.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options describe how to configure a logger instance.
type Options struct {
	Level  string
	Format string
	// File, when set, receives the log instead of Output. In wrapper mode the
	// terminal belongs to the child, so logs normally go to a file.
	File   string
	Output io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger backed by log/slog. The returned closer releases the
// log file, if one was opened.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	out := opts.Output
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
	}
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceTimeAttr,
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text", "console":
		handler = slog.NewTextHandler(out, &handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, &handlerOpts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	return slog.New(handler), closer, nil
}

// Discard returns a logger that drops everything. Components fall back to
// it when no logger is supplied.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name into a slog level. An empty name means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

func replaceTimeAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return attr
}
