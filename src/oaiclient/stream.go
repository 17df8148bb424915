package oaiclient

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elee1766/agent007/src/aisdk"
)

var sseDataPrefix = []byte("data:")

// eventStream reads chat completion chunks from a text/event-stream body.
type eventStream struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	done     bool
	chunks   int
	finished bool
}

func newEventStream(body io.ReadCloser) *eventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventStream{body: body, scanner: scanner}
}

// Read implements aisdk.StreamInterface.
func (s *eventStream) Read() (*aisdk.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if !bytes.HasPrefix(line, sseDataPrefix) {
			// blank separators, comments and event: lines
			continue
		}
		data := bytes.TrimSpace(line[len(sseDataPrefix):])
		if string(data) == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &APIError{Message: errResp.Error.Message, Type: errResp.Error.Type}
		}

		var chunk aisdk.StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		s.chunks++
		for _, c := range chunk.Choices {
			if c.FinishReason != "" {
				s.finished = true
			}
		}
		return &chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.done = true
	switch {
	case s.chunks == 0:
		return nil, fmt.Errorf("%w: stream closed before any data", ErrConnection)
	case !s.finished:
		return nil, fmt.Errorf("%w: stream closed before completion", ErrConnection)
	}
	// Some servers close the body after the finish reason without sending [DONE].
	return nil, io.EOF
}

// Close implements aisdk.StreamInterface.
func (s *eventStream) Close() error {
	return s.body.Close()
}
