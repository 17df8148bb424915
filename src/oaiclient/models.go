package oaiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
)

// ModelsResponse represents the response from the /models endpoint
type ModelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

// ListModels returns all available models (with caching)
func (c *Client) ListModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	return c.modelCache.GetModelList(ctx)
}

// GetModel returns a specific model by ID (with caching)
func (c *Client) GetModel(ctx context.Context, modelID string) (*aisdk.ModelInfo, error) {
	return c.modelCache.GetModel(ctx, modelID)
}

// getModelInfo finds modelID in the server's model list.
func (c *Client) getModelInfo(ctx context.Context, modelID string) (*aisdk.ModelInfo, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, model := range models {
		if model.ID == modelID {
			return model, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
}

// listModelsUncached returns all available models without caching
func (c *Client) listModelsUncached(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var modelsResp ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := make([]*aisdk.ModelInfo, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		info := &aisdk.ModelInfo{
			ID:      m.ID,
			Name:    m.ID,
			OwnedBy: m.OwnedBy,
		}
		if m.Created > 0 {
			info.ModifiedAt = time.Unix(m.Created, 0).UTC()
		}
		out = append(out, info)
	}
	return out, nil
}
