// Package logging sets up the charm logger used across mydashboard.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"

	"mydashboard/internal/config"
)

// New opens cfg.File and returns a logger writing to it plus the closer for
// the file. An empty File logs to stderr, which only suits headless commands.
func New(cfg config.LogConfig) (*charmlog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	return NewWriter(out, cfg), closer, nil
}

// NewWriter builds a logger on an arbitrary writer.
func NewWriter(w io.Writer, cfg config.LogConfig) *charmlog.Logger {
	level, err := charmlog.ParseLevel(cfg.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return l
}

// Discard is the logger components fall back to when given none.
func Discard() *charmlog.Logger {
	return charmlog.New(io.Discard)
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *charmlog.Logger) context.Context {
	return charmlog.WithContext(ctx, l)
}

// FromContext returns the logger stored in ctx, or the charm default logger.
func FromContext(ctx context.Context) *charmlog.Logger {
	return charmlog.FromContext(ctx)
}
