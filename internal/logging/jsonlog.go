package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() { SetOutput(os.Stdout, slog.LevelInfo) }

// SetOutput redirects JSON log lines to w at the given minimum level.
func SetOutput(w io.Writer, level slog.Level) {
	current.Store(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

func Log(level slog.Level, msg string, fields map[string]any) {
	l := current.Load()
	if len(fields) == 0 {
		l.Log(context.Background(), level, msg)
		return
	}
	attrs := make([]any, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.Log(context.Background(), level, msg, slog.Group("fields", attrs...))
}

func Debug(msg string, fields map[string]any) { Log(slog.LevelDebug, msg, fields) }
func Info(msg string, fields map[string]any)  { Log(slog.LevelInfo, msg, fields) }
func Warn(msg string, fields map[string]any)  { Log(slog.LevelWarn, msg, fields) }
func Error(msg string, fields map[string]any) { Log(slog.LevelError, msg, fields) }
