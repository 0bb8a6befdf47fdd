package tui

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/errors"
	"github.com/Iron-Ham/chalbox/internal/lifecycle"
	"github.com/Iron-Ham/chalbox/internal/logging"
	"github.com/Iron-Ham/chalbox/internal/tui/keymap"
	tuimsg "github.com/Iron-Ham/chalbox/internal/tui/msg"
	"github.com/Iron-Ham/chalbox/internal/tui/styles"
	"github.com/Iron-Ham/chalbox/internal/tui/view"
)

// Options configures the TUI model.
type Options struct {
	// Theme is a styles theme name; unknown names get the default.
	Theme string
	// Hyperlinks renders http targets as OSC 8 links.
	Hyperlinks bool
	// AutoView fetches container info on start and after every challenge switch.
	AutoView bool
	// Clipboard receives OSC 52 sequences. Defaults to stdout.
	Clipboard io.Writer
	Logger    *logging.Logger
}

// triggerMsg starts an operation from inside the update loop.
type triggerMsg struct {
	op container.Operation
}

// Model is the Bubble Tea model of the challenge panel. All state lives in
// the controller; the model only routes keys and backend replies to it.
type Model struct {
	ctx    context.Context
	ctrl   *lifecycle.Controller
	logger *logging.Logger

	keys    keymap.KeyMap
	help    help.Model
	spinner spinner.Model
	input   textinput.Model
	theme   styles.Theme

	hyperlinks bool
	autoView   bool
	clipboard  io.Writer
	openURL    func(string) tea.Cmd

	switching bool
	notice    string
	noticeErr bool
	width     int
	quitting  bool
}

// NewModel creates a model driving ctrl. Backend calls run with ctx.
func NewModel(ctx context.Context, ctrl *lifecycle.Controller, opts Options) Model {
	theme := styles.NewTheme(opts.Theme)

	input := textinput.New()
	input.Prompt = "Challenge ID: "
	input.PromptStyle = theme.InputPrompt
	input.Placeholder = "42"
	input.CharLimit = 9

	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	clipboard := opts.Clipboard
	if clipboard == nil {
		clipboard = os.Stdout
	}

	m := Model{
		ctx:        ctx,
		ctrl:       ctrl,
		logger:     logger,
		keys:       keymap.Default(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Spinner)),
		input:      input,
		theme:      theme,
		hyperlinks: opts.Hyperlinks,
		autoView:   opts.AutoView,
		clipboard:  clipboard,
		openURL:    tuimsg.OpenURL,
	}
	m.keys.Sync(ctrl.State())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.autoView {
		return trigger(container.OpView)
	}
	return nil
}

func trigger(op container.Operation) tea.Cmd {
	return func() tea.Msg { return triggerMsg{op: op} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.switching {
			return m.handleSwitchInput(msg)
		}
		return m.handleKey(msg)

	case triggerMsg:
		return m.start(msg.op)

	case tuimsg.ResultMsg:
		if !m.ctrl.Complete(msg.Ticket, msg.Result, msg.Err) {
			m.logger.Debug("ignored reply for previous challenge", "challenge", msg.Ticket.ChallengeID)
		}
		m.keys.Sync(m.ctrl.State())
		return m, nil

	case tuimsg.CopiedMsg:
		if msg.Err != nil {
			m.setNotice("Copy failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice("Copied to clipboard.", false)
		}
		return m, nil

	case tuimsg.OpenedMsg:
		if msg.Err != nil {
			m.setNotice("Could not open browser: "+msg.Err.Error(), true)
		} else {
			m.setNotice("Opened "+msg.URL, false)
		}
		return m, nil

	case spinner.TickMsg:
		// Let the tick chain die once nothing is loading.
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.switching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Switch):
		m.switching = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Copy):
		if d := m.ctrl.State().Alert.Connection; d != nil {
			return m, tuimsg.CopyToClipboard(m.clipboard, d.Target())
		}
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if d := m.ctrl.State().Alert.Connection; d != nil && d.URL != "" {
			return m, m.openURL(d.URL)
		}
		return m, nil
	}

	if op, ok := m.keys.Operation(msg); ok {
		return m.start(op)
	}
	return m, nil
}

func (m Model) handleSwitchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.switching = false
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		id, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil || id <= 0 {
			m.setNotice("Challenge ID must be a positive number.", true)
			return m, nil
		}
		m.switching = false
		m.input.Blur()
		m.notice = ""
		m.ctrl.SwitchChallenge(id)
		m.keys.Sync(m.ctrl.State())
		if m.autoView {
			return m.start(container.OpView)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// start begins op and dispatches the backend call. Rejections (busy,
// invalid challenge) surface as a notice and leave the panel untouched.
func (m Model) start(op container.Operation) (tea.Model, tea.Cmd) {
	t, err := m.ctrl.Begin(op)
	if err != nil {
		m.setNotice(startNotice(op, err), true)
		return m, nil
	}
	m.notice = ""
	m.keys.Sync(m.ctrl.State())
	return m, tea.Batch(m.spinner.Tick, tuimsg.CallBackend(m.ctx, m.ctrl.Backend(), t))
}

// startNotice picks the text shown when op cannot start. Internal error
// text is only shown for errors marked user facing.
func startNotice(op container.Operation, err error) string {
	switch {
	case errors.IsUserFacing(err):
		return err.Error()
	case errors.Is(err, errors.ErrBusy):
		return "Another operation is still running."
	case errors.IsRetryable(err):
		return op.FailureText() + " Try again."
	default:
		return op.FailureText()
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.ctrl.State()
	sections := []string{view.Panel(s, view.Options{
		Theme:      m.theme,
		Spinner:    m.spinner.View(),
		Hyperlinks: m.hyperlinks,
		Width:      m.width,
	})}

	if m.switching {
		sections = append(sections, "", m.input.View())
	}
	if m.notice != "" {
		style := m.theme.Notice
		if m.noticeErr {
			style = m.theme.Danger
		}
		sections = append(sections, "", style.Render(m.notice))
	}
	sections = append(sections, m.theme.HelpBarPadding.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
