// Package logger builds the process-wide slog.Logger and provides
// attribute helpers for the fields the bot logs most often.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the slog handler.
type Format string

const (
	// FormatJSON is used in production, where logs go to an aggregator.
	FormatJSON Format = "json"
	// FormatText is easier to read in a terminal.
	FormatText Format = "text"
)

// Options configures New.
type Options struct {
	Level     slog.Level
	Format    Format
	Output    io.Writer
	AddSource bool
	// Attrs are attached to every record (service, env, ...).
	Attrs []slog.Attr
}

// DefaultOptions returns text output at info level on stdout.
func DefaultOptions() Options {
	return Options{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stdout,
	}
}

// New creates a logger from options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	if len(opts.Attrs) > 0 {
		handler = handler.WithAttrs(opts.Attrs)
	}
	return slog.New(handler)
}

// ForEnvironment picks JSON for production and text elsewhere.
// debug lowers the level to Debug.
func ForEnvironment(env string, debug bool) Options {
	opts := DefaultOptions()
	if strings.EqualFold(env, "production") {
		opts.Format = FormatJSON
	}
	if debug {
		opts.Level = slog.LevelDebug
	}
	return opts
}

// ParseLevel parses a level name. Unknown names map to Info.
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Context propagation
// ─────────────────────────────────────────────────────────────────────────────

type ctxKey struct{}

// WithContext stores a logger in the context.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain attributes
// ─────────────────────────────────────────────────────────────────────────────

func UserID(id string) slog.Attr        { return slog.String("user_id", id) }
func GuildID(id string) slog.Attr       { return slog.String("guild_id", id) }
func ChannelID(id string) slog.Attr     { return slog.String("channel_id", id) }
func Command(name string) slog.Attr     { return slog.String("command", name) }
func Component(name string) slog.Attr   { return slog.String("component", name) }
func Operation(name string) slog.Attr   { return slog.String("operation", name) }
func CorrelationID(id string) slog.Attr { return slog.String("correlation_id", id) }
func XPAmount(xp int64) slog.Attr       { return slog.Int64("xp_amount", xp) }
func Level(level int) slog.Attr         { return slog.Int("level", level) }
func Latency(d time.Duration) slog.Attr { return slog.Duration("latency", d) }

// Err creates an error attribute. A nil error logs as an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
