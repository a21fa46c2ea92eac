package logger

import (
	"log/slog"
	"os"
	"strings"
)

var levelVar slog.LevelVar

// Init configures the process-wide slog default: JSON by default,
// text when LOG_FORMAT=text, with the service name attached to every
// record. Level can be adjusted later via SetLevel.
func Init(service string) *slog.Logger {
	SetLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: &levelVar}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	l := slog.New(h).With("service", service)
	if env := strings.TrimSpace(os.Getenv("APP_ENV")); env != "" {
		l = l.With("env", env)
	}
	slog.SetDefault(l)
	return l
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}
