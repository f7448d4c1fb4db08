package config

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a log.level value to a slog level. "off" yields ok with
// a nil level.
func ParseLevel(s string) (*slog.Level, bool) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return nil, true
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, false
	}
	return &lvl, true
}

// NewLogger returns a text logger on w at the configured level, or a
// discarding logger when logging is off.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl, ok := ParseLevel(level)
	if !ok || lvl == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: *lvl}))
}
