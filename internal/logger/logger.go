// Package logger wraps log/slog with the handful of knobs tada exposes
// through its configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Options mirrors config.Log so this package stays import-free.
type Options struct {
	Level  string
	Format string // "json" or "text"
	Output string // STDERR, STDOUT, DISCARD or a file path
}

// New builds a logger. The returned closer releases the output file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	out, closer, err := openOutput(opts.Output)
	if err != nil {
		return nil, nil, err
	}
	return NewWriter(out, opts), closer, nil
}

// NewWriter builds a logger on an already open writer.
func NewWriter(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	default:
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h)
}

// Discard is a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR to slog levels, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(o string) (io.Writer, io.Closer, error) {
	switch strings.ToUpper(o) {
	case "", "STDERR":
		return os.Stderr, nopCloser{}, nil
	case "STDOUT":
		return os.Stdout, nopCloser{}, nil
	case "DISCARD":
		return io.Discard, nopCloser{}, nil
	}
	f, err := os.OpenFile(o, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f, nil
}
