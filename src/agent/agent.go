// Package agent generates assistant replies for a conversation.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
)

// DefaultSystemPrompt is sent ahead of the history on every request.
const DefaultSystemPrompt = "You are a helpful, general-purpose AI assistant. Answer clearly and politely."

// DefaultTemperature is the sampling temperature used when none is set.
const DefaultTemperature = 0.7

// Agent turns a history plus new user text into one assistant message.
//
// The system prompt lives here and is prepended to each request; it is never
// written into a Conversation. An Agent holds no per-conversation state, so
// one value can serve any number of conversations in sequence.
type Agent struct {
	Model        aisdk.ModelClient
	SystemPrompt string   // DefaultSystemPrompt when empty
	Temperature  *float64 // DefaultTemperature when nil
	MaxTokens    *int
	Logger       *slog.Logger
}

// New returns an Agent bound to model with the default prompt and sampling.
func New(model aisdk.ModelClient, logger *slog.Logger) *Agent {
	return &Agent{Model: model, Logger: logger}
}

// SystemMessage returns the system message that heads every request.
func (a *Agent) SystemMessage() aisdk.Message {
	if a.SystemPrompt == "" {
		return aisdk.SystemMessage(DefaultSystemPrompt)
	}
	return aisdk.SystemMessage(a.SystemPrompt)
}

// BuildRequest composes [system] + history + [user text]. history is copied.
func (a *Agent) BuildRequest(history []aisdk.Message, text string) *aisdk.ChatCompletionRequest {
	messages := make([]aisdk.Message, 0, len(history)+2)
	messages = append(messages, a.SystemMessage())
	messages = append(messages, history...)
	messages = append(messages, aisdk.UserMessage(text))

	temperature := DefaultTemperature
	if a.Temperature != nil {
		temperature = *a.Temperature
	}

	return &aisdk.ChatCompletionRequest{
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   a.MaxTokens,
	}
}

// Generate sends one request and returns the reply as an assistant message.
// It does not modify history; the caller decides what to keep.
func (a *Agent) Generate(ctx context.Context, history []aisdk.Message, text string) (aisdk.Message, error) {
	logger := a.logger()
	req := a.BuildRequest(history, text)
	logger.Debug("generating reply", "history", len(history), "messages", len(req.Messages))

	start := time.Now()
	resp, err := a.Model.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.Warn("generation failed", "error", err, "elapsed", time.Since(start))
		return aisdk.Message{}, a.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return aisdk.Message{}, a.wrap(ErrEmptyResponse)
	}

	logger.Info("reply generated",
		"elapsed", time.Since(start),
		"completion_tokens", resp.Usage.CompletionTokens)
	return aisdk.AssistantMessage(resp.Choices[0].Message.Content), nil
}

// GenerateStream is Generate over a streamed completion. onDelta receives each
// text fragment as it arrives; the returned message holds the full text.
func (a *Agent) GenerateStream(ctx context.Context, history []aisdk.Message, text string, onDelta func(string)) (aisdk.Message, error) {
	logger := a.logger()
	req := a.BuildRequest(history, text)
	req.Stream = true
	logger.Debug("generating streamed reply", "history", len(history))

	stream, err := a.Model.CreateChatCompletionStream(ctx, req)
	if err != nil {
		logger.Warn("generation failed", "error", err)
		return aisdk.Message{}, a.wrap(err)
	}

	resp, err := aisdk.AggregateStream(stream, func(chunk *aisdk.StreamChunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if delta := chunk.DeltaContent(); delta != "" && onDelta != nil {
			onDelta(delta)
		}
		return nil
	})
	if err != nil {
		logger.Warn("stream failed", "error", err)
		return aisdk.Message{}, a.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return aisdk.Message{}, a.wrap(ErrEmptyResponse)
	}
	return aisdk.AssistantMessage(resp.Choices[0].Message.Content), nil
}

// Turn runs one exchange against conv. The user and assistant messages are
// appended together only when generation succeeds, so a failed turn leaves
// conv untouched.
func (a *Agent) Turn(ctx context.Context, conv *aisdk.Conversation, text string) (aisdk.Message, error) {
	reply, err := a.Generate(ctx, conv.Snapshot(), text)
	if err != nil {
		return aisdk.Message{}, err
	}
	conv.Append(aisdk.UserMessage(text))
	conv.Append(reply)
	return reply, nil
}

// TurnStream is Turn using GenerateStream.
func (a *Agent) TurnStream(ctx context.Context, conv *aisdk.Conversation, text string, onDelta func(string)) (aisdk.Message, error) {
	reply, err := a.GenerateStream(ctx, conv.Snapshot(), text, onDelta)
	if err != nil {
		return aisdk.Message{}, err
	}
	conv.Append(aisdk.UserMessage(text))
	conv.Append(reply)
	return reply, nil
}

// Ask answers a single question given prior history and returns only the
// reply text. history is neither modified nor retained.
func (a *Agent) Ask(ctx context.Context, question string, history []aisdk.Message) (string, error) {
	reply, err := a.Generate(ctx, history, question)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (a *Agent) logger() *slog.Logger {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "agent")
}

func (a *Agent) wrap(err error) error {
	model := ""
	if a.Model != nil {
		if info := a.Model.GetModelInfo(); info != nil {
			model = info.ID
		}
	}
	return &GenerationError{Model: model, Err: err}
}
