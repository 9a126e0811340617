package internal

import (
	"io"
	"log/slog"
	"time"
)

// NewLogger builds the service logger. Production emits JSON with
// RFC3339Nano timestamps for the log pipeline; dev and test get
// human-readable text output.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	lv := new(slog.LevelVar) // info unless overridden
	switch level {
	case "debug":
		lv.Set(slog.LevelDebug)
	case "info":
	case "warn":
		lv.Set(slog.LevelWarn)
	case "error":
		lv.Set(slog.LevelError)
	default:
		slog.Default().Warn("Unknown LOG_LEVEL, using info", slog.String("value", level))
	}

	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lv,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("time", a.Value.Time().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	}

	return slog.New(h)
}
