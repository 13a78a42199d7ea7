// Package logging configures log/slog and builds loggers that carry the
// request and session a log line belongs to.
//
// The chi RequestID middleware and the session middleware both put their
// IDs on the request context; FromContext picks them up so every line
// written while serving a request can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const sessionKey ctxKey = iota

// Setup installs the default slog logger writing to stdout.
//
// level is one of "debug", "info", "warn", "error" (default "info").
// format is "text" or "json" (default "text").
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w with the given level and format.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithSession stores a session ID for FromContext.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFromContext returns the session ID stored by ContextWithSession.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// FromContext returns the default logger with request_id and session_id
// attached when ctx carries them.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("columns selected", "file", fileID)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if sid := SessionFromContext(ctx); sid != "" {
		logger = logger.With("session_id", sid)
	}

	return logger
}

// WithFields returns FromContext(ctx) with extra fields, for loggers that
// follow one operation across several steps.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
