package oaiclient

import (
	"context"
	"fmt"

	"github.com/elee1766/agent007/src/aisdk"
)

var _ aisdk.ModelClient = (*ModelClient)(nil)

// ModelClient represents a client bound to a specific model
type ModelClient struct {
	client *Client
	name   string
}

// Model creates a ModelClient bound to the specified model. The server is not
// contacted until the first completion.
func (c *Client) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &ModelClient{client: c, name: modelName}, nil
}

// CreateChatCompletion creates a chat completion with the bound model
func (mc *ModelClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	req.Model = mc.name
	return mc.client.createChatCompletion(ctx, req)
}

// CreateChatCompletionStream creates a streaming chat completion with the bound model
func (mc *ModelClient) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	req.Model = mc.name
	return mc.client.createChatCompletionStream(ctx, req)
}

// GetModelInfo returns the model information
func (mc *ModelClient) GetModelInfo() *aisdk.ModelInfo {
	if info, ok := mc.client.modelCache.Peek(mc.name); ok {
		return info
	}
	return &aisdk.ModelInfo{ID: mc.name, Name: mc.name}
}
