package repl

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Render modes.
const (
	ModePlain    = "plain"
	ModeWrap     = "wrap"
	ModeMarkdown = "markdown"
)

const defaultWidth = 80

// Renderer formats assistant replies for display.
type Renderer struct {
	mode  string
	width int
	md    *glamour.TermRenderer
}

// NewRenderer builds a renderer for mode. A width of zero or less means
// "use the terminal width".
func NewRenderer(mode string, width int) (*Renderer, error) {
	if width <= 0 {
		width = TerminalWidth()
	}
	r := &Renderer{mode: mode, width: width}

	switch mode {
	case ModePlain, "":
		r.mode = ModePlain
	case ModeWrap:
	case ModeMarkdown:
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		r.md = md
	default:
		return nil, fmt.Errorf("unknown render mode %q", mode)
	}
	return r, nil
}

// Mode returns the effective render mode.
func (r *Renderer) Mode() string {
	return r.mode
}

// Reply formats a complete reply line: the labelled prefix followed by the
// content. Markdown output starts on its own line under the label.
func (r *Renderer) Reply(label, content string) string {
	switch r.mode {
	case ModeWrap:
		return ansi.Wordwrap(label+content, r.width, "")
	case ModeMarkdown:
		return strings.TrimRight(label, " ") + "\n" + r.Render(content)
	}
	return label + content
}

// Render formats content without a label. Markdown falls back to the raw
// text when rendering fails.
func (r *Renderer) Render(content string) string {
	switch r.mode {
	case ModeWrap:
		return ansi.Wordwrap(content, r.width, "")
	case ModeMarkdown:
		out, err := r.md.Render(content)
		if err != nil {
			return content
		}
		return strings.TrimRight(out, "\n")
	}
	return content
}

// TerminalWidth returns the width of stdout, or 80 when it is not a
// terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
