// Package aisdktest provides an in-memory aisdk.ModelClient for tests.
package aisdktest

import (
	"context"
	"strings"
	"sync"

	"github.com/elee1766/agent007/src/aisdk"
)

var _ aisdk.ModelClient = (*StubClient)(nil)

// Reply is one scripted backend answer. When Err is set the call fails.
type Reply struct {
	Content string
	Err     error
}

// StubClient answers from a script and records every request it receives.
// Once the script is exhausted it keeps returning Default.
type StubClient struct {
	Default Reply
	Info    aisdk.ModelInfo

	mu       sync.Mutex
	script   []Reply
	requests []aisdk.ChatCompletionRequest
}

// New returns a stub that always answers content.
func New(content string) *StubClient {
	return &StubClient{
		Default: Reply{Content: content},
		Info:    aisdk.ModelInfo{ID: "stub", Name: "stub"},
	}
}

// Script queues replies that are consumed in order.
func (s *StubClient) Script(replies ...Reply) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, replies...)
	return s
}

// Requests returns copies of the requests received so far.
func (s *StubClient) Requests() []aisdk.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]aisdk.ChatCompletionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of completion requests received.
func (s *StubClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *StubClient) next(req *aisdk.ChatCompletionRequest) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *req
	r.Messages = append([]aisdk.Message(nil), req.Messages...)
	s.requests = append(s.requests, r)

	if len(s.script) == 0 {
		return s.Default
	}
	reply := s.script[0]
	s.script = s.script[1:]
	return reply
}

// CreateChatCompletion implements aisdk.ModelClient.
func (s *StubClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	reply := s.next(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &aisdk.ChatCompletionResponse{
		Model:   s.Info.ID,
		Choices: []aisdk.Choice{{Message: aisdk.AssistantMessage(reply.Content), FinishReason: "stop"}},
	}, nil
}

// CreateChatCompletionStream implements aisdk.ModelClient. The reply is split
// into word-sized chunks and the last one carries the finish reason.
func (s *StubClient) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	reply := s.next(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply.Err != nil {
		return nil, reply.Err
	}

	var chunks []*aisdk.StreamChunk
	for _, part := range strings.SplitAfter(reply.Content, " ") {
		if part != "" {
			chunks = append(chunks, aisdk.TextChunk(part))
		}
	}
	if len(chunks) == 0 {
		chunks = append(chunks, aisdk.TextChunk(""))
	}
	chunks[len(chunks)-1].Choices[0].FinishReason = "stop"
	return aisdk.NewSliceStream(nil, chunks...), nil
}

// GetModelInfo implements aisdk.ModelClient.
func (s *StubClient) GetModelInfo() *aisdk.ModelInfo {
	info := s.Info
	return &info
}
