// Package oaiclient is a chat backend for servers that speak the OpenAI
// chat completions protocol.
package oaiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
)

const (
	DefaultBaseURL = "http://127.0.0.1:11434/v1"
	defaultTTL     = 5 * time.Minute
)

var _ aisdk.Provider = (*Client)(nil)

// Client is an OpenAI-compatible API client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	modelCache *aisdk.ModelCache
}

// NewClient creates a new client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.RetryCount <= 0 {
		config.RetryCount = 1
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaultTTL
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With("component", "openai_client"),
	}
	client.modelCache = aisdk.NewModelCache(config.CacheTTL, client.getModelInfo, client.listModelsUncached)
	return client
}

// Name implements aisdk.Provider.
func (c *Client) Name() string {
	return "openai"
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Ping checks that the server answers the models endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.listModelsUncached(ctx)
	return err
}

// createChatCompletion sends a non-streaming chat completion request.
func (c *Client) createChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	logger := c.logger.With("method", "CreateChatCompletion", "model", req.Model)
	logger.Debug("sending chat completion request", "messages", len(req.Messages))

	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	var result aisdk.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Error("failed to decode response", "error", err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	logger.Info("chat completion successful", "usage_total", result.Usage.TotalTokens)
	return &result, nil
}

// createChatCompletionStream opens a server-sent events stream.
func (c *Client) createChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	c.logger.Debug("sending streaming chat completion request", "model", req.Model)

	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return nil, err
	}
	return newEventStream(resp.Body), nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doRequestWithRetry performs a request, retrying transport failures and
// retryable API errors up to RetryCount attempts. Any status >= 400 that is
// returned to the caller has already been converted into an *APIError.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	logger := c.logger.With("method", "doRequestWithRetry", "path", path)

	var lastErr error
	for attempt := 1; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 1 {
			delay := RetryDelay(lastErr, c.config.RetryDelay, attempt-1)
			logger.Debug("retrying request", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = transportError(method+" "+path, c.config.Timeout, err)
			if ctx.Err() != nil || !IsRetryable(lastErr) {
				return nil, lastErr
			}
			continue
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		apiErr := c.handleError(resp)
		resp.Body.Close()
		if !apiErr.IsRetryable() {
			return nil, apiErr
		}
		lastErr = apiErr
	}

	if c.config.RetryCount > 1 {
		logger.Error("request failed after all retries", "retry_count", c.config.RetryCount, "error", lastErr)
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryCount, lastErr)
	}
	return nil, lastErr
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	apiErr.Type = errResp.Error.Type
	apiErr.Message = errResp.Error.Message
	apiErr.Param = errResp.Error.Param
	if errResp.Error.Code != nil {
		apiErr.Code = fmt.Sprint(errResp.Error.Code)
	}
	return apiErr
}

// GetModels implements aisdk.Provider.
func (c *Client) GetModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	return c.ListModels(ctx)
}
