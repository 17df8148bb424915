package theme

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors used across the command line output.
type Palette struct {
	Primary   lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	TextMuted lipgloss.Color
}

// CurrentTheme is the active palette.
var CurrentTheme = Palette{
	Primary:   lipgloss.Color("#00afaf"),
	Error:     lipgloss.Color("#ff5f5f"),
	Success:   lipgloss.Color("#5fd75f"),
	TextMuted: lipgloss.Color("#808080"),
}

// Styles decorates labels and notices. The zero value renders text
// unchanged, which is what non-terminal output uses.
type Styles struct {
	enabled bool

	assistant lipgloss.Style
	err       lipgloss.Style
	ok        lipgloss.Style
	muted     lipgloss.Style
	heading   lipgloss.Style
}

// New returns styles built from the current palette. When enabled is false
// every method returns its input.
func New(enabled bool) Styles {
	p := CurrentTheme
	return Styles{
		enabled:   enabled,
		assistant: lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		err:       lipgloss.NewStyle().Foreground(p.Error),
		ok:        lipgloss.NewStyle().Foreground(p.Success),
		muted:     lipgloss.NewStyle().Foreground(p.TextMuted),
		heading:   lipgloss.NewStyle().Bold(true),
	}
}

func (s Styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

// Assistant styles the assistant name prefix.
func (s Styles) Assistant(text string) string { return s.render(s.assistant, text) }

// Error styles failure notices.
func (s Styles) Error(text string) string { return s.render(s.err, text) }

// OK styles success marks.
func (s Styles) OK(text string) string { return s.render(s.ok, text) }

// Muted styles secondary text such as hints and separators.
func (s Styles) Muted(text string) string { return s.render(s.muted, text) }

// Heading styles section titles.
func (s Styles) Heading(text string) string { return s.render(s.heading, text) }
