package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/elee1766/agent007/src/config"
	"github.com/elee1766/agent007/src/repl"
	"github.com/elee1766/agent007/src/storage"
	"github.com/elee1766/agent007/src/theme"
	"github.com/spf13/afero"
)

// HistoryCmd browses the transcript archive
type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List recorded sessions"`
	Show   HistoryShowCmd   `cmd:"" help:"Print a recorded session"`
	Export HistoryExportCmd `cmd:"" help:"Export a recorded session"`
	Delete HistoryDeleteCmd `cmd:"" help:"Delete a recorded session"`
}

func openArchive(cli *CLI) (*config.Config, *storage.DB, error) {
	cfg, _, err := loadConfig(cli, configOverrides{})
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return cfg, db, nil
}

func loadTranscript(ctx context.Context, db *storage.DB, id string) (storage.Transcript, error) {
	session, err := storage.FindSession(ctx, db.DB(), id)
	if err != nil {
		return storage.Transcript{}, err
	}
	if session == nil {
		return storage.Transcript{}, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
	}
	messages, err := storage.GetMessagesBySessionID(ctx, db.DB(), session.ID)
	if err != nil {
		return storage.Transcript{}, fmt.Errorf("failed to load messages: %w", err)
	}
	return storage.Transcript{Session: *session, Messages: messages}, nil
}

// HistoryListCmd lists recorded sessions
type HistoryListCmd struct {
	Limit  int    `short:"n" help:"Maximum number of sessions to show (0 for all)" default:"20"`
	Format string `help:"Output format (table, json)" enum:"table,json" default:"table"`
}

// Run executes the history list command
func (c *HistoryListCmd) Run(kctx *kong.Context, cli *CLI) error {
	_, db, err := openArchive(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := storage.ListSessions(context.Background(), db.DB(), c.Limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if c.Format == "json" {
		if sessions == nil {
			sessions = []storage.SessionSummary{}
		}
		return printJSON(os.Stdout, sessions)
	}
	return printSessionsTable(os.Stdout, sessions)
}

func printSessionsTable(out io.Writer, sessions []storage.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(out, "No recorded sessions. Start one with: agent007 chat --record")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tMODEL\tMESSAGES\tTITLE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			shortID(s.ID), s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.Model, s.MessageCount, s.Title)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// HistoryShowCmd prints a recorded session
type HistoryShowCmd struct {
	ID     string `arg:"" help:"Session ID, unique prefix or 'latest'"`
	Render string `help:"Reply rendering (plain, wrap, markdown)" default:"plain"`
}

// Run executes the history show command
func (c *HistoryShowCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, db, err := openArchive(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	t, err := loadTranscript(context.Background(), db, c.ID)
	if err != nil {
		return err
	}

	renderer, err := repl.NewRenderer(c.Render, 0)
	if err != nil {
		return err
	}
	styles := theme.New(repl.IsStdoutTTY())

	fmt.Println(styles.Heading(t.Session.Title))
	fmt.Println(styles.Muted(fmt.Sprintf("%s  %s/%s  %s", t.Session.ID, t.Session.Provider, t.Session.Model,
		t.Session.CreatedAt.Local().Format("2006-01-02 15:04"))))
	for _, m := range t.Messages {
		label := cfg.Chat.UserPrompt + ": "
		if m.Role == "assistant" {
			label = styles.Assistant(cfg.Chat.AssistantName) + ": "
		}
		fmt.Println()
		fmt.Println(renderer.Reply(label, m.Content))
	}
	return nil
}

// HistoryExportCmd exports a recorded session
type HistoryExportCmd struct {
	ID     string `arg:"" help:"Session ID, unique prefix or 'latest'"`
	Output string `short:"o" help:"Output file (stdout when empty)" type:"path"`
	Format string `help:"Export format (markdown, json, text); guessed from the output file when empty" enum:",markdown,json,text" default:""`
}

// Run executes the history export command
func (c *HistoryExportCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, db, err := openArchive(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	t, err := loadTranscript(context.Background(), db, c.ID)
	if err != nil {
		return err
	}

	opts := storage.ExportOptions{
		Format:        c.Format,
		UserLabel:     cfg.Chat.UserPrompt,
		AssistantName: cfg.Chat.AssistantName,
	}
	if c.Output == "" {
		return storage.Export(os.Stdout, t, opts)
	}
	if err := storage.ExportFile(afero.NewOsFs(), c.Output, t, opts); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d messages to %s\n", len(t.Messages), c.Output)
	return nil
}

// HistoryDeleteCmd deletes a recorded session
type HistoryDeleteCmd struct {
	ID string `arg:"" help:"Session ID, unique prefix or 'latest'"`
}

// Run executes the history delete command
func (c *HistoryDeleteCmd) Run(kctx *kong.Context, cli *CLI) error {
	_, db, err := openArchive(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	session, err := storage.FindSession(ctx, db.DB(), c.ID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: %s", storage.ErrSessionNotFound, c.ID)
	}

	tx, err := db.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := storage.DeleteSession(ctx, tx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Printf("Deleted session %s\n", session.ID)
	return nil
}
