// Package repl runs the interactive chat loop: read a line, hand it to the
// generator, print the reply, repeat until the user quits.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elee1766/agent007/src/aisdk"
	"github.com/elee1766/agent007/src/theme"
)

// Fixed user-facing text.
const (
	BannerTitle = "Agent007 Bot - Ready to assist!"
	BannerHint  = "Type 'exit' or 'bye' to quit the conversation."

	emptyNotice = "Please enter a message or type 'exit' to quit."
	retryNotice = "Please try again or type 'exit' to quit."
	farewell    = "Goodbye! Have a great day!"
	interrupted = "Conversation interrupted. Goodbye!"
)

var quitWords = map[string]bool{"exit": true, "bye": true, "quit": true}

// IsQuitWord reports whether input ends the session. Matching ignores case
// and surrounding whitespace.
func IsQuitWord(input string) bool {
	return quitWords[strings.ToLower(strings.TrimSpace(input))]
}

// Generator produces one reply per turn and appends the exchange to the
// conversation on success only. *agent.Agent implements it.
type Generator interface {
	Turn(ctx context.Context, conv *aisdk.Conversation, text string) (aisdk.Message, error)
	TurnStream(ctx context.Context, conv *aisdk.Conversation, text string, onDelta func(string)) (aisdk.Message, error)
}

// Recorder archives completed turns.
type Recorder interface {
	RecordTurn(ctx context.Context, user, reply aisdk.Message) error
}

// Options configures a Session.
type Options struct {
	// AssistantName prefixes replies and farewells. Defaults to "007".
	AssistantName string
	// UserPrompt is the input label. Defaults to "You".
	UserPrompt string
	// Stream prints replies incrementally.
	Stream bool
	// Renderer formats complete replies. Nil prints them as is.
	Renderer *Renderer
	Styles   theme.Styles
	// Recorder, when set, receives every successful turn.
	Recorder Recorder
	Logger   *slog.Logger
}

// Session is one interactive conversation.
type Session struct {
	gen  Generator
	conv *aisdk.Conversation
	in   LineReader
	out  io.Writer
	opts Options

	logger *slog.Logger
}

// New creates a session. conv may already hold resumed history.
func New(gen Generator, conv *aisdk.Conversation, in LineReader, out io.Writer, opts Options) *Session {
	if conv == nil {
		conv = aisdk.NewConversation()
	}
	if opts.AssistantName == "" {
		opts.AssistantName = "007"
	}
	if opts.UserPrompt == "" {
		opts.UserPrompt = "You"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		gen:    gen,
		conv:   conv,
		in:     in,
		out:    out,
		opts:   opts,
		logger: logger.With("component", "repl"),
	}
}

// Conversation returns the session's conversation.
func (s *Session) Conversation() *aisdk.Conversation {
	return s.conv
}

// Run prints the banner and loops until the user quits, input ends or ctx
// is cancelled. All three are a normal end and return nil. Only failures
// to read input or write output are returned.
func (s *Session) Run(ctx context.Context) error {
	if err := s.banner(); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return s.say("\n\n", interrupted)
		}

		line, err := s.readLine(ctx)
		switch {
		case errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled):
			s.logger.Info("session interrupted", "messages", s.conv.Len())
			return s.say("\n\n", interrupted)
		case errors.Is(err, io.EOF):
			s.logger.Info("input closed", "messages", s.conv.Len())
			return s.say("\n", farewell)
		case err != nil:
			return fmt.Errorf("failed to read input: %w", err)
		}

		text := strings.TrimSpace(line)
		if IsQuitWord(text) {
			s.logger.Info("session ended", "messages", s.conv.Len())
			return s.say("\n", farewell)
		}
		if text == "" {
			if err := s.println(s.opts.Styles.Muted(emptyNotice)); err != nil {
				return err
			}
			continue
		}

		if done, err := s.turn(ctx, text); done || err != nil {
			return err
		}
	}
}

func (s *Session) banner() error {
	lines := []string{
		BannerTitle,
		BannerHint,
		s.opts.Styles.Muted(strings.Repeat("-", 50)),
	}
	for _, l := range lines {
		if err := s.println(l); err != nil {
			return err
		}
	}
	return nil
}

// readLine reads in the background so a cancelled context ends the wait.
func (s *Session) readLine(ctx context.Context) (string, error) {
	if err := s.print("\n"); err != nil {
		return "", err
	}

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.in.ReadLine(s.opts.UserPrompt + ": ")
		ch <- result{line, err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// turn generates one reply. done is true when the session must end.
func (s *Session) turn(ctx context.Context, text string) (done bool, err error) {
	user := aisdk.UserMessage(text)
	label := s.opts.Styles.Assistant(s.opts.AssistantName) + ": "
	start := time.Now()

	var reply aisdk.Message
	var genErr error
	if s.opts.Stream {
		if err := s.print("\n" + label); err != nil {
			return true, err
		}
		var writeErr error
		reply, genErr = s.gen.TurnStream(ctx, s.conv, text, func(delta string) {
			if writeErr == nil {
				writeErr = s.print(delta)
			}
		})
		if writeErr != nil {
			return true, writeErr
		}
		if err := s.print("\n"); err != nil {
			return true, err
		}
	} else {
		reply, genErr = s.gen.Turn(ctx, s.conv, text)
	}

	if genErr != nil {
		if ctx.Err() != nil {
			s.logger.Info("generation interrupted", "messages", s.conv.Len())
			return true, s.say("\n\n", interrupted)
		}
		s.logger.Warn("generation failed", "error", genErr, "duration", time.Since(start))
		if err := s.println(s.opts.Styles.Error(fmt.Sprintf("Error: %v", genErr))); err != nil {
			return true, err
		}
		return false, s.println(retryNotice)
	}

	s.logger.Debug("turn completed", "duration", time.Since(start), "messages", s.conv.Len())

	if !s.opts.Stream {
		out := label + reply.Content
		if s.opts.Renderer != nil {
			out = s.opts.Renderer.Reply(label, reply.Content)
		}
		if err := s.println("\n" + out); err != nil {
			return true, err
		}
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordTurn(ctx, user, reply); err != nil {
			s.logger.Warn("failed to record turn", "error", err)
		}
	}
	return false, nil
}

// say prints a message from the assistant after the given leading text.
func (s *Session) say(lead, msg string) error {
	return s.println(lead + s.opts.Styles.Assistant(s.opts.AssistantName) + ": " + msg)
}

func (s *Session) print(text string) error {
	_, err := io.WriteString(s.out, text)
	return err
}

func (s *Session) println(text string) error {
	return s.print(text + "\n")
}
