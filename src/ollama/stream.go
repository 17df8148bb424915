package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/elee1766/agent007/src/aisdk"
)

var _ aisdk.StreamInterface = (*StreamReader)(nil)

// StreamReader decodes the newline-delimited JSON body of a streaming
// /api/chat response.
type StreamReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// NewStreamReader wraps a streaming response body.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamReader{body: body, scanner: scanner}
}

// Next returns the next raw response line, or io.EOF after the final one.
func (s *StreamReader) Next() (*ChatResponse, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp ChatResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode stream chunk", Cause: err}
		}
		if resp.Error != "" {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: resp.Error}
		}
		if resp.Done {
			s.done = true
		}
		return &resp, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: err}
	}
	if !s.done {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "stream ended before completion"}
	}
	return nil, io.EOF
}

// Read implements aisdk.StreamInterface.
func (s *StreamReader) Read() (*aisdk.StreamChunk, error) {
	resp, err := s.Next()
	if err != nil {
		return nil, err
	}

	chunk := &aisdk.StreamChunk{
		Object:  "chat.completion.chunk",
		Created: resp.CreatedAt.Unix(),
		Model:   resp.Model,
		Choices: []aisdk.Choice{{
			Delta: &aisdk.Message{Role: aisdk.RoleAssistant, Content: resp.Message.Content},
		}},
	}
	if resp.Done {
		chunk.Choices[0].FinishReason = finishReason(resp.DoneReason)
		chunk.Usage = usage(resp)
	}
	return chunk, nil
}

// Close releases the response body.
func (s *StreamReader) Close() error {
	return s.body.Close()
}

func finishReason(reason string) string {
	if reason == "" {
		return "stop"
	}
	return reason
}

func usage(resp *ChatResponse) *aisdk.Usage {
	return &aisdk.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
}
