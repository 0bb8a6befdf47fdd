// Package styles holds the lipgloss palettes and styles of the chalbox TUI.
package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault ThemeName = "default" // Purple/green dark theme
	ThemeMono    ThemeName = "mono"    // No colors, emphasis only
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{string(ThemeDefault), string(ThemeMono)}
}

// IsValidTheme checks if a theme name is known.
func IsValidTheme(name string) bool {
	return slices.Contains(BuiltinThemes(), name)
}

// ColorPalette defines the color scheme for a theme.
// All colors should meet WCAG AA contrast requirements (4.5:1 ratio).
type ColorPalette struct {
	// Primary accent color (titles, active elements)
	Primary lipgloss.TerminalColor
	// Secondary accent color (connection details, key hints)
	Secondary lipgloss.TerminalColor
	// Danger color (business and transport errors)
	Danger lipgloss.TerminalColor
	// Muted color (de-emphasized text, disabled controls)
	Muted lipgloss.TerminalColor
	// Text color (primary text)
	Text lipgloss.TerminalColor
	// Border color (panel borders)
	Border lipgloss.TerminalColor
	// Link color (http connection links)
	Link lipgloss.TerminalColor
}

// DefaultPalette returns the default purple/green dark palette.
func DefaultPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#A78BFA"), // Purple (violet-400)
		Secondary: lipgloss.Color("#10B981"), // Green
		Danger:    lipgloss.Color("#F87171"), // Red (red-400)
		Muted:     lipgloss.Color("#9CA3AF"), // Gray
		Text:      lipgloss.Color("#F9FAFB"), // Light text
		Border:    lipgloss.Color("#6B7280"), // Gray-500
		Link:      lipgloss.Color("#60A5FA"), // Blue
	}
}

// MonoPalette returns a palette that leaves every color to the terminal.
func MonoPalette() *ColorPalette {
	none := lipgloss.NoColor{}
	return &ColorPalette{
		Primary:   none,
		Secondary: none,
		Danger:    none,
		Muted:     none,
		Text:      none,
		Border:    none,
		Link:      none,
	}
}

// PaletteFor returns the palette of a theme, falling back to the default.
func PaletteFor(name string) *ColorPalette {
	if ThemeName(name) == ThemeMono {
		return MonoPalette()
	}
	return DefaultPalette()
}

// Theme is the set of styles the views draw with.
type Theme struct {
	Name ThemeName

	Title          lipgloss.Style
	Panel          lipgloss.Style
	Neutral        lipgloss.Style
	Danger         lipgloss.Style
	Command        lipgloss.Style
	Link           lipgloss.Style
	Muted          lipgloss.Style
	Control        lipgloss.Style
	ControlKey     lipgloss.Style
	ControlOff     lipgloss.Style
	Notice         lipgloss.Style
	Spinner        lipgloss.Style
	InputPrompt    lipgloss.Style
	HelpBarPadding lipgloss.Style
}

// NewTheme builds the styles for a named theme. Unknown names get the default.
func NewTheme(name string) Theme {
	p := PaletteFor(name)
	themeName := ThemeDefault
	if IsValidTheme(name) {
		themeName = ThemeName(name)
	}

	t := Theme{
		Name: themeName,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			MarginBottom(1),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(1, 2),

		Neutral: lipgloss.NewStyle().Foreground(p.Text),

		Danger: lipgloss.NewStyle().
			Foreground(p.Danger).
			Bold(true),

		Command: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true),

		Link: lipgloss.NewStyle().
			Foreground(p.Link).
			Underline(true),

		Muted: lipgloss.NewStyle().Foreground(p.Muted),

		Control: lipgloss.NewStyle().
			Foreground(p.Text).
			MarginRight(2),

		ControlKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Secondary),

		ControlOff: lipgloss.NewStyle().
			Foreground(p.Muted).
			Faint(true).
			MarginRight(2),

		Notice: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),

		Spinner: lipgloss.NewStyle().Foreground(p.Primary),

		InputPrompt: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true),

		HelpBarPadding: lipgloss.NewStyle().MarginTop(1),
	}

	if themeName == ThemeMono {
		// Without color the danger text needs another cue.
		t.Danger = t.Danger.Reverse(true)
	}
	return t
}
