package aisdk

import (
	"context"
)

// Provider represents a chat backend that can list its models and bind a
// client to one of them.
type Provider interface {
	Name() string
	GetModels(ctx context.Context) ([]*ModelInfo, error)
	GetModel(ctx context.Context, modelName string) (*ModelInfo, error)
	Model(ctx context.Context, modelName string) (ModelClient, error)
	Ping(ctx context.Context) error
}

// ModelClient represents a client for a specific model
type ModelClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (StreamInterface, error)
	GetModelInfo() *ModelInfo
}
