package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SetupSlog configures the default logger. Level is one of debug|info|warn|error (empty means
// info); format is text|json (empty means json).
func SetupSlog(w io.Writer, level, format string) (*slog.Logger, error) {
	var hopts slog.HandlerOptions
	switch strings.ToLower(level) {
	case "", "info":
		hopts.Level = slog.LevelInfo
	case "debug":
		hopts.Level = slog.LevelDebug
	case "warn":
		hopts.Level = slog.LevelWarn
	case "error":
		hopts.Level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %#v", level)
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, &hopts)
	case "text":
		handler = slog.NewTextHandler(w, &hopts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
