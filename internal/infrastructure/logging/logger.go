package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// Err is the attribute helper used for errors in every log line
var Err = tint.Err //nolint:gochecknoglobals

// Field names shared by the HTTP middleware and the outbound round tripper
const (
	FieldDurationMs = "duration-ms"
	FieldItem       = "item"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldRequestID  = "request-id"
	FieldStatus     = "status"
	FieldURL        = "url"
)

// New builds the application logger. Development gets colored text at debug
// level; every other environment gets JSON at info level.
func New(environment string, w io.Writer) *slog.Logger {
	if environment == "development" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
			AddSource:  true,
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// OrDefault returns l, or slog.Default() when l is nil
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
