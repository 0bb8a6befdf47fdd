// Package view renders a lifecycle.UIState. It is the only place that turns
// state into text, for the interactive TUI and the one-shot commands alike.
package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Iron-Ham/chalbox/internal/lifecycle"
	"github.com/Iron-Ham/chalbox/internal/tui/styles"
)

// Options control how a state is drawn.
type Options struct {
	Theme styles.Theme
	// Spinner is the current spinner frame shown while loading.
	Spinner string
	// Hyperlinks wraps http links in OSC 8 escapes.
	Hyperlinks bool
	// Width caps the panel width; zero leaves it unbounded.
	Width int
}

// control is one of the three action controls.
type control struct {
	key   string
	label string
	// update marks the extend/terminate group.
	update bool
}

var controls = []control{
	{key: "c", label: "Create"},
	{key: "e", label: "Extend", update: true},
	{key: "t", label: "Terminate", update: true},
}

// Alert renders the alert area.
func Alert(s lifecycle.UIState, o Options) string {
	t := o.Theme
	switch s.Alert.Kind {
	case lifecycle.AlertSpinner:
		return t.Spinner.Render(o.Spinner) + " " + t.Muted.Render("Loading...")
	case lifecycle.AlertText:
		return t.Neutral.Render(s.Alert.Text)
	case lifecycle.AlertDanger:
		return t.Danger.Render(s.Alert.Text)
	case lifecycle.AlertConnection:
		if s.Alert.Connection == nil {
			return ""
		}
		return connection(*s.Alert.Connection, o)
	}
	return t.Muted.Render("No container information yet.")
}

func connection(d lifecycle.Descriptor, o Options) string {
	t := o.Theme
	var target string
	if d.Command != "" {
		target = t.Command.Render(d.Command)
	} else {
		text := d.URL
		if o.Hyperlinks {
			text = termenv.Hyperlink(d.URL, d.URL)
		}
		target = t.Link.Render(text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, target, t.Muted.Render(d.Expiry))
}

// Controls renders the visible action controls. Disabled controls are
// dimmed, hidden ones are left out.
func Controls(s lifecycle.UIState, o Options) string {
	t := o.Theme
	var parts []string
	for _, c := range controls {
		visible := s.CreateVisible
		if c.update {
			visible = s.UpdateVisible
		}
		if !visible {
			continue
		}
		label := fmt.Sprintf("[%s] %s", c.key, c.label)
		if !s.ControlsEnabled() {
			parts = append(parts, t.ControlOff.Render(label))
			continue
		}
		parts = append(parts, t.Control.Render(t.ControlKey.Render("["+c.key+"]")+" "+c.label))
	}
	return strings.Join(parts, "")
}

// Panel renders the title, alert box, and controls.
func Panel(s lifecycle.UIState, o Options) string {
	t := o.Theme
	title := t.Title.Render(fmt.Sprintf("Challenge #%d", s.ChallengeID))

	box := t.Panel
	if o.Width > 0 {
		box = box.Width(o.Width - box.GetHorizontalFrameSize())
	}

	sections := []string{title, box.Render(Alert(s, o))}
	if c := Controls(s, o); c != "" {
		sections = append(sections, c)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Plain renders the state as unstyled lines for non-interactive output.
func Plain(s lifecycle.UIState) string {
	var lines []string
	switch s.Alert.Kind {
	case lifecycle.AlertText:
		lines = append(lines, s.Alert.Text)
	case lifecycle.AlertDanger:
		lines = append(lines, "error: "+s.Alert.Text)
	case lifecycle.AlertConnection:
		if d := s.Alert.Connection; d != nil {
			lines = append(lines, d.Target(), d.Expiry)
		}
	case lifecycle.AlertSpinner:
		lines = append(lines, "Loading...")
	}

	var available []string
	for _, c := range controls {
		visible := s.CreateVisible
		if c.update {
			visible = s.UpdateVisible
		}
		if visible && s.ControlsEnabled() {
			available = append(available, strings.ToLower(c.label))
		}
	}
	if len(available) > 0 {
		lines = append(lines, "available: "+strings.Join(available, ", "))
	}
	return strings.Join(lines, "\n")
}
