package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/config"
	"github.com/elee1766/agent007/src/oaiclient"
	"github.com/elee1766/agent007/src/ollama"
	"github.com/elee1766/agent007/src/storage"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNetwork     = 6 // Network error or backend not running
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// ConfigError marks a failure to load or validate configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}

	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	os.Exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var (
		configErr     *ConfigError
		validationErr config.ValidationError
		apiErr        *oaiclient.APIError
		parseErr      *kong.ParseError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return ExitConfig
	case errors.As(err, &parseErr), errors.Is(err, storage.ErrAmbiguousID):
		return ExitUsage
	case errors.As(err, &apiErr) && apiErr.IsAuthError():
		return ExitAuth
	case errors.Is(err, ollama.ErrTimeout), errors.Is(err, oaiclient.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, ollama.ErrNotRunning), errors.Is(err, oaiclient.ErrConnection):
		return ExitNetwork
	default:
		return ExitError
	}
}
