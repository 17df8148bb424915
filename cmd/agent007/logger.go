package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// createChatLogger creates a logger that doesn't interfere with the chat
// by writing to a file instead of stdout/stderr
func createChatLogger(logFile, logLevel string) (*slog.Logger, func()) {
	discard := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	if logFile == "" {
		return discard, func() {}
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return discard, func() {}
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return discard, func() {}
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: parseLogLevel(logLevel),
	}))
	return logger, func() { file.Close() }
}

// createCLILogger creates a logger for one-shot commands writing to stderr
func createCLILogger(logLevel string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   parseLogLevel(logLevel),
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
