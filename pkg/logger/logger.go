package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON structured logger for the given environment and level.
// Components derive their own child loggers via With("component", ...).
func New(appEnv, level string) *slog.Logger {
	lvl := parseLevel(level)
	if appEnv == "development" && lvl > slog.LevelDebug {
		lvl = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
