package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"fincrew/internal/infra/config"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds the process logger from config. The close function releases the
// log file when output points at a path; for stdout and stderr it is a no-op.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	out, closeFn, err := resolveOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("log output %q: %w", cfg.Output, err)
	}

	level, ok := levels[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), closeFn, nil
}

func resolveOutput(target string) (io.Writer, func() error, error) {
	keepOpen := func() error { return nil }

	switch strings.ToLower(target) {
	case "stdout":
		return os.Stdout, keepOpen, nil
	case "", "stderr":
		return os.Stderr, keepOpen, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
