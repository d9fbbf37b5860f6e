package logger

import (
	"context"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

type contextKey struct{}

// Logger defines the interface for structured logging
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type charmLogger struct {
	l *charmlog.Logger
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}

// Config controls the logger output
type Config struct {
	Level      string
	JSON       bool
	Output     io.Writer
	TimeFormat string
}

// DefaultConfig returns an info level text logger on stdout
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Output:     os.Stdout,
		TimeFormat: "15:04:05",
	}
}

// ParseLevel maps a level name to a charm log level, defaulting to info
func ParseLevel(level string) charmlog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// New creates a logger from config
func New(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           ParseLevel(cfg.Level),
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return &charmLogger{l: l}
}

// NewForTests returns a logger that discards everything
func NewForTests() Logger {
	return New(&Config{Level: "error", Output: io.Discard})
}

// ContextWithLogger attaches a logger to the context
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or a default one
func FromContext(ctx context.Context) Logger {
	if l, ok := Lookup(ctx); ok {
		return l
	}
	return New(nil)
}

// Lookup returns the logger stored in ctx, if any
func Lookup(ctx context.Context) (Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(contextKey{}).(Logger)
	return l, ok && l != nil
}
