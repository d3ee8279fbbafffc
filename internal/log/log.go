// Package log provides structured logging for gotchi.
// It wraps slog with sensible defaults and an optional mirror sink so
// log lines can also land in the on-device diagnostic ring.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	logger *slog.Logger
	once   sync.Once
	mirror atomic.Value // func(string)
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	once.Do(func() {
		var lvl slog.Level
		switch level {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		default:
			lvl = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{
			Level: lvl,
		}

		// Use JSON in production, text in development
		var base slog.Handler
		if os.Getenv("GO_ENV") == "production" {
			base = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			base = slog.NewTextHandler(os.Stdout, opts)
		}

		logger = slog.New(&mirrorHandler{Handler: base})
		slog.SetDefault(logger)
	})
}

// SetMirror registers a sink that receives every log line as a single
// formatted string. The diagnostic ring registers itself here.
func SetMirror(fn func(line string)) {
	mirror.Store(fn)
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// mirrorHandler forwards records to the base handler and, when a mirror
// sink is registered, to the sink as a flat "msg k=v ..." line.
type mirrorHandler struct {
	slog.Handler
}

func (h *mirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	if fn, ok := mirror.Load().(func(string)); ok && fn != nil {
		var b strings.Builder
		b.WriteString(r.Message)
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		fn(b.String())
	}
	return h.Handler.Handle(ctx, r)
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{Handler: h.Handler.WithGroup(name)}
}
