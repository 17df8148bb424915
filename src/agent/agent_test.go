package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/elee1766/agent007/src/aisdk"
	"github.com/elee1766/agent007/src/aisdk/aisdktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskReturnsReplyText(t *testing.T) {
	stub := aisdktest.New("Hello! How can I help you today?")
	a := New(stub, nil)

	got, err := a.Ask(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you today?", got)

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []aisdk.Message{
		aisdk.SystemMessage(DefaultSystemPrompt),
		aisdk.UserMessage("hello"),
	}, reqs[0].Messages)
	require.NotNil(t, reqs[0].Temperature)
	assert.InDelta(t, 0.7, *reqs[0].Temperature, 1e-9)
	assert.Nil(t, reqs[0].MaxTokens)
}

func TestRequestOrdering(t *testing.T) {
	history := []aisdk.Message{
		aisdk.UserMessage("What is Go?"),
		aisdk.AssistantMessage("A programming language."),
		aisdk.UserMessage("Who made it?"),
		aisdk.AssistantMessage("Google."),
	}
	stub := aisdktest.New("2009.")
	a := New(stub, nil)

	_, err := a.Ask(context.Background(), "When?", history)
	require.NoError(t, err)

	want := append([]aisdk.Message{aisdk.SystemMessage(DefaultSystemPrompt)}, history...)
	want = append(want, aisdk.UserMessage("When?"))
	assert.Equal(t, want, stub.Requests()[0].Messages)

	// the caller's slice is untouched
	assert.Len(t, history, 4)
}

func TestAskDoesNotAliasHistory(t *testing.T) {
	history := make([]aisdk.Message, 1, 8)
	history[0] = aisdk.UserMessage("first")

	stub := aisdktest.New("ok")
	a := New(stub, nil)
	_, err := a.Ask(context.Background(), "second", history)
	require.NoError(t, err)

	assert.Equal(t, []aisdk.Message{aisdk.UserMessage("first")}, history)
	assert.Equal(t, aisdk.UserMessage("first"), history[:2][0])
	assert.Equal(t, aisdk.Message{}, history[:2][1])
}

func TestCustomPromptAndSampling(t *testing.T) {
	temp := 0.0
	maxTokens := 128
	stub := aisdktest.New("ok")
	a := &Agent{Model: stub, SystemPrompt: "Be terse.", Temperature: &temp, MaxTokens: &maxTokens}

	_, err := a.Ask(context.Background(), "hi", nil)
	require.NoError(t, err)

	req := stub.Requests()[0]
	assert.Equal(t, aisdk.SystemMessage("Be terse."), req.Messages[0])
	assert.Equal(t, 0.0, *req.Temperature)
	assert.Equal(t, 128, *req.MaxTokens)
}

func TestTurnGrowsConversationByTwo(t *testing.T) {
	stub := aisdktest.New("reply")
	a := New(stub, nil)
	conv := aisdk.NewConversation()

	for i := 1; i <= 3; i++ {
		reply, err := a.Turn(context.Background(), conv, "question")
		require.NoError(t, err)
		assert.Equal(t, aisdk.AssistantMessage("reply"), reply)
		assert.Equal(t, 2*i, conv.Len())
	}

	for _, m := range conv.Snapshot() {
		assert.NotEqual(t, aisdk.RoleSystem, m.Role)
	}
	// each request carries exactly one system message at the head
	for _, req := range stub.Requests() {
		assert.Equal(t, aisdk.RoleSystem, req.Messages[0].Role)
		for _, m := range req.Messages[1:] {
			assert.NotEqual(t, aisdk.RoleSystem, m.Role)
		}
	}
}

func TestFailedTurnLeavesConversationUnchanged(t *testing.T) {
	backendDown := errors.New("connection refused")
	stub := aisdktest.New("fine").Script(
		aisdktest.Reply{Content: "first"},
		aisdktest.Reply{Err: backendDown},
	)
	a := New(stub, nil)
	conv := aisdk.NewConversation()

	_, err := a.Turn(context.Background(), conv, "one")
	require.NoError(t, err)
	before := conv.Snapshot()

	_, err = a.Turn(context.Background(), conv, "two")
	require.Error(t, err)
	assert.ErrorIs(t, err, backendDown)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "stub", genErr.Model)
	assert.Equal(t, "stub: connection refused", err.Error())

	assert.Equal(t, before, conv.Snapshot())
	assert.Equal(t, 2, conv.Len())

	_, err = a.Turn(context.Background(), conv, "three")
	require.NoError(t, err)
	assert.Equal(t, 4, conv.Len())
}

func TestEmptyChoicesIsAFailure(t *testing.T) {
	a := New(emptyClient{aisdktest.New("")}, nil)
	_, err := a.Ask(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAskPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(aisdktest.New("never"), nil)
	_, err := a.Ask(ctx, "hi", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTurnStream(t *testing.T) {
	stub := aisdktest.New("Hello there friend")
	a := New(stub, nil)
	conv := aisdk.NewConversation(aisdk.UserMessage("earlier"), aisdk.AssistantMessage("sure"))

	var deltas []string
	reply, err := a.TurnStream(context.Background(), conv, "hi", func(s string) {
		deltas = append(deltas, s)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello ", "there ", "friend"}, deltas)
	assert.Equal(t, aisdk.AssistantMessage("Hello there friend"), reply)
	assert.Equal(t, 4, conv.Len())

	req := stub.Requests()[0]
	assert.True(t, req.Stream)
	assert.Len(t, req.Messages, 4)
}

func TestTurnStreamFailure(t *testing.T) {
	stub := aisdktest.New("").Script(aisdktest.Reply{Err: errors.New("boom")})
	a := New(stub, nil)
	conv := aisdk.NewConversation()

	_, err := a.TurnStream(context.Background(), conv, "hi", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, conv.Len())
}

// emptyStreamClient streams chunks that carry no choices.
type emptyStreamClient struct {
	*aisdktest.StubClient
	chunks []*aisdk.StreamChunk
}

func (c emptyStreamClient) CreateChatCompletionStream(context.Context, *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	return aisdk.NewSliceStream(nil, c.chunks...), nil
}

func TestTurnStreamWithoutChoices(t *testing.T) {
	tests := []struct {
		name   string
		chunks []*aisdk.StreamChunk
	}{
		{name: "no chunks"},
		{name: "usage only", chunks: []*aisdk.StreamChunk{{ID: "c1", Usage: &aisdk.Usage{PromptTokens: 4}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(emptyStreamClient{StubClient: aisdktest.New("unused"), chunks: tt.chunks}, nil)
			conv := aisdk.NewConversation(aisdk.UserMessage("earlier"), aisdk.AssistantMessage("sure"))

			_, err := a.TurnStream(context.Background(), conv, "hi", nil)
			assert.ErrorIs(t, err, ErrEmptyResponse)
			var genErr *GenerationError
			assert.ErrorAs(t, err, &genErr)
			assert.Equal(t, 2, conv.Len())
		})
	}
}

func TestTurnStreamEmptyReplyMatchesTurn(t *testing.T) {
	a := New(aisdktest.New(""), nil)

	conv := aisdk.NewConversation()
	_, err := a.TurnStream(context.Background(), conv, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, conv.Len())

	conv = aisdk.NewConversation()
	_, err = a.Turn(context.Background(), conv, "hi")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.Len())
}

// emptyClient answers with zero choices.
type emptyClient struct{ *aisdktest.StubClient }

func (emptyClient) CreateChatCompletion(context.Context, *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return &aisdk.ChatCompletionResponse{}, nil
}
