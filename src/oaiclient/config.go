package oaiclient

import (
	"log/slog"
	"time"
)

// Config holds configuration for an OpenAI-compatible chat backend such as
// llama.cpp's server, LM Studio, vLLM or Ollama's /v1 endpoint.
type Config struct {
	APIKey     string        // Bearer token, optional for local servers
	BaseURL    string        // Base URL including the /v1 suffix
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // HTTP timeout, zero waits forever
	RetryCount int           // Total attempts per request, at least one
	RetryDelay time.Duration // Base delay between attempts
	CacheTTL   time.Duration // Lifetime of cached model metadata
}
