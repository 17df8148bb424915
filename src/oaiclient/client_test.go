package oaiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletion(t *testing.T) {
	var got aisdk.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-local", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gemma:2b","choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":9,"completion_tokens":2,"total_tokens":11}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-local"})
	mc, err := c.Model(context.Background(), "gemma:2b")
	require.NoError(t, err)

	temp := 0.7
	resp, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{
		Messages:    []aisdk.Message{aisdk.SystemMessage("sys"), aisdk.UserMessage("hi")},
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "gemma:2b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, []aisdk.Message{aisdk.SystemMessage("sys"), aisdk.UserMessage("hi")}, got.Messages)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)

	assert.Equal(t, aisdk.AssistantMessage("Hello!"), resp.Choices[0].Message)
	assert.Equal(t, 11, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionNoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	mc, _ := c.Model(context.Background(), "m")
	_, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)
}

func TestCreateChatCompletionEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	mc, _ := c.Model(context.Background(), "m")
	_, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		statuses   []int
		wantCalls  int32
		wantErr    bool
	}{
		{"single attempt by default", 0, []int{503, 200}, 1, true},
		{"retries server errors", 3, []int{503, 502, 200}, 3, false},
		{"does not retry client errors", 3, []int{400, 200}, 1, true},
		{"gives up after retry count", 2, []int{500, 500, 200}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[n-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
					return
				}
				fmt.Fprintf(w, `{"error":{"message":"status %d"}}`, status)
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, RetryCount: tt.retryCount, RetryDelay: time.Millisecond})
			mc, _ := c.Model(context.Background(), "m")
			_, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})

			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				var apiErr *APIError
				assert.ErrorAs(t, err, &apiErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url})
	assert.ErrorIs(t, c.Ping(context.Background()), ErrConnection)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req aisdk.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, `data: {"id":"c1","model":"gemma:2b","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"c1","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	mc, _ := c.Model(context.Background(), "gemma:2b")
	stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)

	resp, err := aisdk.AggregateStream(stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, "c1", resp.ID)
}

func TestStreamClosedEarly(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no data", body: ": keep-alive\n\n"},
		{name: "empty body", body: ""},
		{name: "truncated", body: `data: {"id":"c1","choices":[{"index":0,"delta":{"content":"Hel"}}]}` + "\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			mc, _ := NewClient(Config{BaseURL: srv.URL}).Model(context.Background(), "gemma:2b")
			stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{})
			require.NoError(t, err)

			_, err = aisdk.AggregateStream(stream, nil)
			assert.ErrorIs(t, err, ErrConnection)
		})
	}
}

func TestStreamWithoutDoneMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"c1","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":"stop"}]}`+"\n\n")
	}))
	defer srv.Close()

	mc, _ := NewClient(Config{BaseURL: srv.URL}).Model(context.Background(), "gemma:2b")
	stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)

	resp, err := aisdk.AggregateStream(stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi", resp.Choices[0].Message.Content)
}

func TestModels(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/models", r.URL.Path)
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gemma:2b","object":"model","created":1700000000,"owned_by":"library"},{"id":"llama3:8b","object":"model","owned_by":"library"}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ctx := context.Background()

	models, err := c.GetModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "library", models[0].OwnedBy)
	assert.Equal(t, int64(1700000000), models[0].ModifiedAt.Unix())

	m, err := c.GetModel(ctx, "llama3:8b")
	require.NoError(t, err)
	assert.Equal(t, "llama3:8b", m.ID)

	_, err = c.GetModel(ctx, "phi3")
	assert.ErrorIs(t, err, ErrModelNotFound)

	assert.Equal(t, int32(1), calls.Load())
}
