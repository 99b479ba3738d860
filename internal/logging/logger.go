// Package logging builds the slog loggers shared by the web server and the egress gateway.
package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against attribute keys at any depth.
var sensitiveKeys = map[string]struct{}{
	"access_token":  {},
	"api_key":       {},
	"authorization": {},
	"client_secret": {},
	"password":      {},
	"secret":        {},
	"token":         {},
	"x-api-key":     {},
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text or JSON logger writing to w. At debug level, error records carry a
// stack trace.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if lvl <= slog.LevelDebug {
		handler = NewStackTraceHandler(handler)
	}

	return slog.New(handler)
}

func redactAttr(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, redacted)
	}
	return attr
}

// Truncate keeps the first n characters of a credential for startup diagnostics.
func Truncate(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[:n] + "..."
}

type StackTraceHandler struct {
	handler slog.Handler
}

func NewStackTraceHandler(h slog.Handler) *StackTraceHandler {
	return &StackTraceHandler{handler: h}
}

func (h *StackTraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *StackTraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		r = r.Clone()
		r.Add("stack", string(debug.Stack()))
	}
	return h.handler.Handle(ctx, r)
}

func (h *StackTraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &StackTraceHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *StackTraceHandler) WithGroup(name string) slog.Handler {
	return &StackTraceHandler{handler: h.handler.WithGroup(name)}
}
