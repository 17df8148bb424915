package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/aisdk"
	"github.com/elee1766/agent007/src/app"
	"github.com/elee1766/agent007/src/repl"
	"github.com/elee1766/agent007/src/theme"
)

// ChatCmd runs the interactive conversation loop
type ChatCmd struct {
	Stream bool   `help:"Print replies as they are generated"`
	Record bool   `help:"Archive this conversation"`
	Resume string `help:"Continue an archived session by ID, unique prefix or 'latest' (implies --record)"`
	Render string `help:"Reply rendering (plain, wrap, markdown)"`
}

// Run executes the chat command
func (c *ChatCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli, configOverrides{
		Render: c.Render,
		Stream: enabled(c.Stream),
		Record: enabled(c.Record || c.Resume != ""),
	})
	if err != nil {
		return err
	}

	logger, closeLog := createChatLogger(cfg.Logging.File, cfg.Logging.Level)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	styles := theme.New(repl.IsStdoutTTY())
	conv := aisdk.NewConversation()

	var recorder repl.Recorder
	if cfg.Storage.Record {
		rec, err := application.NewRecorder()
		switch {
		case err != nil && c.Resume != "":
			return err
		case err != nil:
			logger.Warn("transcript archive unavailable", "error", err)
			fmt.Fprintln(os.Stderr, styles.Error("warning: not recording, "+err.Error()))
		default:
			if c.Resume != "" {
				history, err := rec.Resume(ctx, c.Resume)
				if err != nil {
					return err
				}
				conv = aisdk.NewConversation(history...)
				fmt.Println(styles.Muted(fmt.Sprintf("Resumed session %s (%d messages)", rec.Session().ID, len(history))))
			}
			recorder = rec
		}
	}

	renderer, err := repl.NewRenderer(cfg.Chat.Render, 0)
	if err != nil {
		return &ConfigError{Err: err}
	}

	var in repl.LineReader
	if repl.IsInteractive() {
		in = repl.NewLinerReader(cfg.Chat.HistoryFile, logger)
	} else {
		in = repl.NewScannerReader(os.Stdin, os.Stdout)
	}
	defer in.Close()

	logger.Info("chat started",
		"provider", application.Provider.Name(),
		"model", cfg.Agent.Model,
		"stream", cfg.Chat.Stream,
		"record", recorder != nil,
	)

	session := repl.New(application.Agent, conv, in, os.Stdout, repl.Options{
		AssistantName: cfg.Chat.AssistantName,
		UserPrompt:    cfg.Chat.UserPrompt,
		Stream:        cfg.Chat.Stream,
		Renderer:      renderer,
		Styles:        styles,
		Recorder:      recorder,
		Logger:        logger,
	})
	return session.Run(ctx)
}
