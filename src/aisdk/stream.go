package aisdk

import (
	"errors"
	"io"
	"strings"
)

// StreamCallback is a function called for each chunk in a stream.
type StreamCallback func(chunk *StreamChunk) error

// StreamToCallback reads a stream and calls the callback for each chunk.
// The stream is closed before returning.
func StreamToCallback(stream StreamInterface, callback StreamCallback) error {
	defer stream.Close()

	for {
		chunk, err := stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if chunk == nil {
			return nil
		}
		if err := callback(chunk); err != nil {
			return err
		}
	}
}

// DeltaContent returns the text carried by the first choice of the chunk.
func (c *StreamChunk) DeltaContent() string {
	if len(c.Choices) == 0 || c.Choices[0].Delta == nil {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// StreamAggregator folds streamed chunks into a final response.
type StreamAggregator struct {
	ID      string
	Object  string
	Created int64
	Model   string
	Content strings.Builder

	FinishReason string
	Usage        *Usage

	choices int
}

// NewStreamAggregator creates a new stream aggregator.
func NewStreamAggregator() *StreamAggregator {
	return &StreamAggregator{
		Object: "chat.completion",
	}
}

// AddChunk processes a stream chunk and updates the aggregated state.
func (a *StreamAggregator) AddChunk(chunk *StreamChunk) {
	if a.ID == "" {
		a.ID = chunk.ID
	}
	if a.Created == 0 {
		a.Created = chunk.Created
	}
	if a.Model == "" {
		a.Model = chunk.Model
	}
	if chunk.Usage != nil {
		u := *chunk.Usage
		a.Usage = &u
	}

	if len(chunk.Choices) > 0 {
		a.choices++
		choice := chunk.Choices[0]
		if choice.Delta != nil {
			a.Content.WriteString(choice.Delta.Content)
		}
		if choice.FinishReason != "" {
			a.FinishReason = choice.FinishReason
		}
	}
}

// ToResponse converts the aggregated stream into a ChatCompletionResponse.
// A stream that carried no choice at all yields a response without choices.
func (a *StreamAggregator) ToResponse() *ChatCompletionResponse {
	response := &ChatCompletionResponse{
		ID:      a.ID,
		Object:  a.Object,
		Created: a.Created,
		Model:   a.Model,
	}
	if a.choices > 0 {
		response.Choices = []Choice{{
			Index:        0,
			Message:      AssistantMessage(a.Content.String()),
			FinishReason: a.FinishReason,
		}}
	}
	if a.Usage != nil {
		response.Usage = *a.Usage
	}
	return response
}

// AggregateStream reads a stream and returns the aggregated response. When
// onChunk is non-nil it sees every chunk before it is folded in.
func AggregateStream(stream StreamInterface, onChunk StreamCallback) (*ChatCompletionResponse, error) {
	aggregator := NewStreamAggregator()

	err := StreamToCallback(stream, func(chunk *StreamChunk) error {
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
		aggregator.AddChunk(chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return aggregator.ToResponse(), nil
}

// SliceStream replays a fixed list of chunks. It is handy for stub backends.
type SliceStream struct {
	chunks []*StreamChunk
	err    error
	closed bool
}

// NewSliceStream returns a stream that yields chunks and then err (or io.EOF
// when err is nil).
func NewSliceStream(err error, chunks ...*StreamChunk) *SliceStream {
	return &SliceStream{chunks: chunks, err: err}
}

// Read implements StreamInterface.
func (s *SliceStream) Read() (*StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

// Close implements StreamInterface.
func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceStream) Closed() bool {
	return s.closed
}

// TextChunk builds a streaming chunk carrying a single delta.
func TextChunk(content string) *StreamChunk {
	return &StreamChunk{
		Choices: []Choice{{Delta: &Message{Role: RoleAssistant, Content: content}}},
	}
}
