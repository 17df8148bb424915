package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// Transcript is a session together with its messages.
type Transcript struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// ExportOptions controls transcript rendering.
type ExportOptions struct {
	Format        string
	UserLabel     string
	AssistantName string
}

func (o ExportOptions) label(role string) string {
	switch role {
	case "user":
		if o.UserLabel != "" {
			return o.UserLabel
		}
		return "You"
	case "assistant":
		if o.AssistantName != "" {
			return o.AssistantName
		}
	}
	return role
}

// FormatForPath guesses an export format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatText
	default:
		return FormatMarkdown
	}
}

// Export writes t to w in the requested format.
func Export(w io.Writer, t Transcript, opts ExportOptions) error {
	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if t.Messages == nil {
			t.Messages = []Message{}
		}
		return enc.Encode(t)
	case FormatText:
		for _, m := range t.Messages {
			if _, err := fmt.Fprintf(w, "%s: %s\n\n", opts.label(m.Role), m.Content); err != nil {
				return err
			}
		}
		return nil
	case FormatMarkdown, "":
		return exportMarkdown(w, t, opts)
	}
	return fmt.Errorf("unknown export format %q", opts.Format)
}

func exportMarkdown(w io.Writer, t Transcript, opts ExportOptions) error {
	title := t.Session.Title
	if title == "" {
		title = "Session " + t.Session.ID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Session: `%s`\n", t.Session.ID)
	fmt.Fprintf(&b, "- Model: %s (%s)\n", t.Session.Model, t.Session.Provider)
	fmt.Fprintf(&b, "- Started: %s\n", t.Session.CreatedAt.Local().Format(time.RFC1123))

	for _, m := range t.Messages {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", opts.label(m.Role), strings.TrimRight(m.Content, "\n"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ExportFile writes t to path on fsys, creating parent directories.
func ExportFile(fsys afero.Fs, path string, t Transcript, opts ExportOptions) error {
	if opts.Format == "" {
		opts.Format = FormatForPath(path)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Export(f, t, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
