package ollama

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

// Model binds a client to modelName. No request is made here; an unknown or
// missing model surfaces as an error on the first completion.
func (c *Client) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &ModelClient{client: c, name: modelName}, nil
}

// CreateChatCompletion creates a chat completion with the bound model
func (mc *ModelClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	resp, err := mc.client.Chat(ctx, mc.chatRequest(req))
	if err != nil {
		return nil, err
	}

	return &aisdk.ChatCompletionResponse{
		Object:  "chat.completion",
		Created: resp.CreatedAt.Unix(),
		Model:   resp.Model,
		Choices: []aisdk.Choice{{
			Message:      aisdk.AssistantMessage(resp.Message.Content),
			FinishReason: finishReason(resp.DoneReason),
		}},
		Usage: *usage(resp),
	}, nil
}

// CreateChatCompletionStream creates a streaming chat completion with the bound model
func (mc *ModelClient) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	return mc.client.ChatStream(ctx, mc.chatRequest(req))
}

// GetModelInfo returns cached model details when available, otherwise just
// the bound name.
func (mc *ModelClient) GetModelInfo() *aisdk.ModelInfo {
	if info, ok := mc.client.modelCache.Peek(mc.name); ok {
		return info
	}
	return &aisdk.ModelInfo{ID: mc.name, Name: mc.name}
}

func (mc *ModelClient) chatRequest(req *aisdk.ChatCompletionRequest) *ChatRequest {
	messages := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, Message{Role: m.Role.String(), Content: m.Content})
	}

	opts := &Options{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if req.MaxTokens != nil {
		opts.NumPredict = *req.MaxTokens
	}

	return &ChatRequest{
		Model:    mc.name,
		Messages: messages,
		Stream:   req.Stream,
		Options:  opts,
	}
}
