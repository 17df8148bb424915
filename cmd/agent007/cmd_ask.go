package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/aisdk"
	"github.com/elee1766/agent007/src/app"
	"github.com/elee1766/agent007/src/repl"
	"github.com/elee1766/agent007/src/storage"
)

// AskCmd answers a single question without entering the chat loop
type AskCmd struct {
	Question []string `arg:"" help:"Question to ask, or '-' to read it from stdin"`
	Session  string   `help:"Use an archived session (ID, unique prefix or 'latest') as conversation history"`
	Record   bool     `help:"Archive the question and answer"`
	Output   string   `short:"o" help:"Output format (text, json, markdown)" enum:"text,json,markdown" default:"text"`
}

type askResult struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Model     string `json:"model"`
	Provider  string `json:"provider"`
	SessionID string `json:"session_id,omitempty"`
}

// Run executes the ask command
func (c *AskCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli, configOverrides{Record: enabled(c.Record)})
	if err != nil {
		return err
	}
	logger := createCLILogger(cfg.Logging.Level)

	question, err := c.readQuestion(os.Stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	var history []aisdk.Message
	var rec *storage.Recorder
	if c.Session != "" || cfg.Storage.Record {
		if rec, err = application.NewRecorder(); err != nil {
			return err
		}
		if c.Session != "" {
			if history, err = rec.Resume(ctx, c.Session); err != nil {
				return err
			}
		}
	}

	answer, err := application.Agent.Ask(ctx, question, history)
	if err != nil {
		return err
	}

	result := askResult{
		Question: question,
		Answer:   answer,
		Model:    cfg.Agent.Model,
		Provider: application.Provider.Name(),
	}
	if rec != nil && cfg.Storage.Record {
		if err := rec.RecordTurn(ctx, aisdk.UserMessage(question), aisdk.AssistantMessage(answer)); err != nil {
			logger.Warn("failed to record answer", "error", err)
		} else {
			result.SessionID = rec.Session().ID
		}
	}

	return c.print(os.Stdout, result)
}

func (c *AskCmd) readQuestion(stdin io.Reader) (string, error) {
	text := strings.Join(c.Question, " ")
	if text == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read question: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty question")
	}
	return text, nil
}

func (c *AskCmd) print(w io.Writer, result askResult) error {
	switch c.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "markdown":
		r, err := repl.NewRenderer(repl.ModeMarkdown, 0)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, r.Render(result.Answer))
		return err
	default:
		_, err := fmt.Fprintln(w, result.Answer)
		return err
	}
}
