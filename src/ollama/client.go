// Package ollama is a chat backend for a locally running Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
)

const (
	DefaultBaseURL = "http://127.0.0.1:11434"
	defaultTTL     = 5 * time.Minute
)

var _ aisdk.Provider = (*Client)(nil)

// Config holds configuration for the Ollama client
type Config struct {
	BaseURL  string        // Ollama server, DefaultBaseURL when empty
	Timeout  time.Duration // HTTP timeout, zero waits forever
	CacheTTL time.Duration // lifetime of cached model metadata
	Logger   *slog.Logger
}

// Client talks to the Ollama HTTP API. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	modelCache *aisdk.ModelCache
}

// NewClient creates a new Ollama client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.CacheTTL == 0 {
		config.CacheTTL = defaultTTL
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With("component", "ollama_client"),
	}
	c.modelCache = aisdk.NewModelCache(config.CacheTTL, c.getModelInfo, c.listModelInfos)
	return c
}

// Name implements aisdk.Provider.
func (c *Client) Name() string {
	return "ollama"
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Ping verifies that Ollama is reachable and running.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(c.config.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// ListModels retrieves all locally pulled models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp, "failed to list models")
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// Show retrieves details about a single model.
func (c *Client) Show(ctx context.Context, name string) (*ShowModelResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/show", ShowModelRequest{Model: name})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp, "failed to show model "+name)
	}

	var result ShowModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// Chat sends a non-streaming chat request and returns the complete reply.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Stream = false
	logger := c.logger.With("method", "Chat", "model", req.Model)
	logger.Debug("sending chat request", "messages", len(req.Messages))

	start := time.Now()
	resp, err := c.do(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := c.handleError(resp, "chat request failed")
		logger.Error("received error response", "status_code", resp.StatusCode, "error", err)
		return nil, err
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: result.Error}
	}

	logger.Info("chat completion successful",
		"prompt_tokens", result.PromptEvalCount,
		"completion_tokens", result.EvalCount,
		"elapsed", time.Since(start))
	return &result, nil
}

// ChatStream sends a streaming chat request. The caller must Close the
// returned reader.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (*StreamReader, error) {
	req.Stream = true
	c.logger.Debug("sending streaming chat request", "model", req.Model, "messages", len(req.Messages))

	resp, err := c.do(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.handleError(resp, "chat request failed")
	}
	return NewStreamReader(resp.Body), nil
}

// GetModels implements aisdk.Provider using the model cache.
func (c *Client) GetModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	return c.modelCache.GetModelList(ctx)
}

// GetModel returns cached details for one model.
func (c *Client) GetModel(ctx context.Context, name string) (*aisdk.ModelInfo, error) {
	return c.modelCache.GetModel(ctx, name)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(c.config.BaseURL, err)
	}
	return resp, nil
}

// handleError turns a non-2xx response into a ClientError.
func (c *Client) handleError(resp *http.Response, prefix string) error {
	var body errorResponse
	data, _ := io.ReadAll(resp.Body)
	msg := prefix + ": " + resp.Status
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}

	if resp.StatusCode == http.StatusNotFound {
		return &ClientError{Type: ErrTypeModelNotFound, Message: msg}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: msg}
}

func (c *Client) getModelInfo(ctx context.Context, name string) (*aisdk.ModelInfo, error) {
	show, err := c.Show(ctx, name)
	if err != nil {
		return nil, err
	}
	info := &aisdk.ModelInfo{
		ID:            name,
		Name:          name,
		OwnedBy:       "library",
		Family:        show.Details.Family,
		ParameterSize: show.Details.ParameterSize,
		Quantization:  show.Details.QuantizationLevel,
		Format:        show.Details.Format,
		ModifiedAt:    show.ModifiedAt,
		ContextLength: contextLength(show),
	}
	return info, nil
}

func (c *Client) listModelInfos(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*aisdk.ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, toModelInfo(m))
	}
	return out, nil
}

func toModelInfo(m ModelInfo) *aisdk.ModelInfo {
	return &aisdk.ModelInfo{
		ID:            m.Name,
		Name:          m.Name,
		Family:        m.Details.Family,
		ParameterSize: m.Details.ParameterSize,
		Quantization:  m.Details.QuantizationLevel,
		Format:        m.Details.Format,
		Size:          m.Size,
		Digest:        m.Digest,
		ModifiedAt:    m.ModifiedAt,
	}
}

// contextLength digs the "<arch>.context_length" key out of model_info.
func contextLength(show *ShowModelResponse) int {
	for k, v := range show.ModelInfo {
		if !strings.HasSuffix(k, ".context_length") {
			continue
		}
		if n, ok := v.(float64); ok {
			return int(n)
		}
	}
	return 0
}

// String is used in log lines and the doctor output.
func (c *Client) String() string {
	return fmt.Sprintf("ollama(%s)", c.config.BaseURL)
}
