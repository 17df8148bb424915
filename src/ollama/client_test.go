package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func ptr[T any](v T) *T { return &v }

func TestCreateChatCompletion(t *testing.T) {
	var got ChatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"gemma:2b","created_at":"2025-01-01T00:00:00Z","message":{"role":"assistant","content":"Hi there!"},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":4}`)
	})

	mc, err := c.Model(context.Background(), "gemma:2b")
	require.NoError(t, err)

	resp, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{
		Messages: []aisdk.Message{
			aisdk.SystemMessage("be nice"),
			aisdk.UserMessage("hello"),
		},
		Temperature: ptr(0.7),
	})
	require.NoError(t, err)

	assert.Equal(t, "gemma:2b", got.Model)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	require.NotNil(t, got.Options.Temperature)
	assert.InDelta(t, 0.7, *got.Options.Temperature, 1e-9)
	assert.Equal(t, []Message{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hello"},
	}, got.Messages)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, aisdk.AssistantMessage("Hi there!"), resp.Choices[0].Message)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantMsg string
	}{
		{
			name:    "model not found",
			status:  http.StatusNotFound,
			body:    `{"error":"model \"gemma:2b\" not found, try pulling it first"}`,
			wantIs:  ErrModelNotFound,
			wantMsg: `model "gemma:2b" not found, try pulling it first`,
		},
		{
			name:    "server error without body",
			status:  http.StatusInternalServerError,
			body:    ``,
			wantMsg: "chat request failed: 500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Chat(context.Background(), &ChatRequest{Model: "gemma:2b"})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantMsg, ce.Message)
		})
	}
}

func TestChatNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url})
	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gemma:2b"})
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.NotErrorIs(t, err, ErrTimeout)

	assert.ErrorIs(t, c.Ping(context.Background()), ErrNotRunning)
}

func TestChatTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gemma:2b"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestChatCanceledContextPassesThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Chat(ctx, &ChatRequest{Model: "gemma:2b"})
	assert.ErrorIs(t, err, context.Canceled)

	var ce *ClientError
	assert.False(t, errors.As(err, &ce))
}

func TestCreateChatCompletionStream(t *testing.T) {
	var got ChatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"gemma:2b","message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"model":"gemma:2b","message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"model":"gemma:2b","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":5,"eval_count":2}`)
	})

	mc, err := c.Model(context.Background(), "gemma:2b")
	require.NoError(t, err)

	stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{
		Messages: []aisdk.Message{aisdk.UserMessage("hi")},
		Stream:   true,
	})
	require.NoError(t, err)
	assert.True(t, got.Stream)

	resp, err := aisdk.AggregateStream(stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"error line", `{"message":{"content":"a"},"done":false}` + "\n" + `{"error":"out of memory"}` + "\n"},
		{"truncated", `{"message":{"content":"a"},"done":false}` + "\n"},
		{"malformed", "not json\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			stream, err := c.ChatStream(context.Background(), &ChatRequest{Model: "gemma:2b"})
			require.NoError(t, err)

			_, err = aisdk.AggregateStream(stream, nil)
			var ce *ClientError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestModels(t *testing.T) {
	tagCalls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			tagCalls++
			fmt.Fprint(w, `{"models":[{"name":"gemma:2b","size":1678447520,"digest":"b50d6c999e59","details":{"family":"gemma","parameter_size":"3B","quantization_level":"Q4_0","format":"gguf"}}]}`)
		case "/api/show":
			var req ShowModelRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Model != "gemma:2b" {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprintf(w, `{"error":"model '%s' not found"}`, req.Model)
				return
			}
			fmt.Fprint(w, `{"details":{"family":"gemma","parameter_size":"3B"},"model_info":{"general.architecture":"gemma","gemma.context_length":8192}}`)
		case "/":
			fmt.Fprint(w, "Ollama is running")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	models, err := c.GetModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gemma:2b", models[0].ID)
	assert.Equal(t, "Q4_0", models[0].Quantization)
	assert.Equal(t, int64(1678447520), models[0].Size)

	_, err = c.GetModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tagCalls)

	info, err := c.GetModel(ctx, "gemma:2b")
	require.NoError(t, err)
	assert.Equal(t, 8192, info.ContextLength)
	assert.Equal(t, "gemma", info.Family)

	mc, err := c.Model(ctx, "gemma:2b")
	require.NoError(t, err)
	assert.Equal(t, 8192, mc.GetModelInfo().ContextLength)

	_, err = c.GetModel(ctx, "llama3:70b")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestModelRequiresName(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Model(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}
