package tui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/errors"
	"github.com/Iron-Ham/chalbox/internal/lifecycle"
	tuimsg "github.com/Iron-Ham/chalbox/internal/tui/msg"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type call struct {
	op container.Operation
	id int
}

// fakeBackend answers from a per-operation table.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	replies map[container.Operation]container.Result
}

func (b *fakeBackend) Do(_ context.Context, op container.Operation, id int) (container.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{op, id})
	res := b.replies[op]
	res.Op = op
	return res, nil
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func running(connect string) container.Result {
	return container.Result{
		Kind:   container.KindRunning,
		Status: container.StatusAlreadyRunning,
		Connection: container.Connection{
			Connect:   connect,
			Hostname:  "chal.example",
			Port:      31337,
			ExpiresAt: testNow.Add(30 * time.Minute),
		},
	}
}

func newBackend() *fakeBackend {
	return &fakeBackend{replies: map[container.Operation]container.Result{
		container.OpView:    {Kind: container.KindNotStarted, Status: container.StatusNotStarted},
		container.OpRequest: running("tcp"),
		container.OpRenew:   running("tcp"),
		container.OpStop:    {Kind: container.KindStopped},
	}}
}

func newTestModel(t *testing.T, b *fakeBackend, opts Options) Model {
	t.Helper()
	ctrl := lifecycle.NewController(b, 1, lifecycle.WithClock(func() time.Time { return testNow }))
	m := NewModel(context.Background(), ctrl, opts)
	m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and returns the backend replies it produced. Spinner
// ticks and cursor blinks are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
	case tuimsg.ResultMsg, tuimsg.CopiedMsg, tuimsg.OpenedMsg, triggerMsg:
		out = append(out, msg)
	}
	return out
}

// send delivers msg and then every follow-up message until quiescent.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next, cmd := m.Update(queue[0])
		m = next.(Model)
		queue = append(queue[1:], collect(cmd)...)
	}
	return m
}

func TestInitFetchesContainerInfo(t *testing.T) {
	b := newBackend()
	m := newTestModel(t, b, Options{AutoView: true, Theme: "mono"})

	for _, msg := range collect(m.Init()) {
		m = send(t, m, msg)
	}

	s := m.ctrl.State()
	if s.Alert.Text != container.StatusNotStarted || !s.CreateVisible || s.UpdateVisible {
		t.Fatalf("state after init: %s %q", s, s.Alert.Text)
	}
	out := m.View()
	if !strings.Contains(out, "Challenge not started") || !strings.Contains(out, "Create") {
		t.Errorf("view missing not-started panel:\n%s", out)
	}
}

func TestInitWithoutAutoView(t *testing.T) {
	m := newTestModel(t, newBackend(), Options{})
	if cmd := m.Init(); cmd != nil {
		t.Error("Init returned a command without AutoView")
	}
}

func TestCreateExtendTerminate(t *testing.T) {
	b := newBackend()
	m := newTestModel(t, b, Options{AutoView: true})
	for _, msg := range collect(m.Init()) {
		m = send(t, m, msg)
	}

	m = send(t, m, keyPress("c"))
	s := m.ctrl.State()
	if s.Alert.Connection == nil || s.Alert.Connection.Command != "nc chal.example 31337" {
		t.Fatalf("after create: %s %+v", s, s.Alert)
	}
	if !strings.Contains(m.View(), "Expires in 30 minutes.") {
		t.Errorf("view missing expiry:\n%s", m.View())
	}

	m = send(t, m, keyPress("e"))
	if s := m.ctrl.State(); s.Phase != lifecycle.PhaseRunning || !s.UpdateVisible {
		t.Errorf("after extend: %s", s)
	}

	m = send(t, m, keyPress("t"))
	s = m.ctrl.State()
	if s.Alert.Text != lifecycle.TerminatedText || !s.CreateVisible || s.UpdateVisible {
		t.Errorf("after terminate: %s %q", s, s.Alert.Text)
	}

	want := []call{{container.OpView, 1}, {container.OpRequest, 1}, {container.OpRenew, 1}, {container.OpStop, 1}}
	if len(b.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", b.calls, want)
	}
	for i := range want {
		if b.calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, b.calls[i], want[i])
		}
	}
}

func TestHiddenControlsIgnoreKeys(t *testing.T) {
	b := newBackend()
	m := newTestModel(t, b, Options{})

	// Nothing is visible on a fresh panel, so only refresh may fire.
	m = send(t, m, keyPress("t"))
	m = send(t, m, keyPress("e"))
	m = send(t, m, keyPress("c"))
	if n := b.callCount(); n != 0 {
		t.Fatalf("backend called %d times for hidden controls", n)
	}

	send(t, m, keyPress("r"))
	if n := b.callCount(); n != 1 {
		t.Errorf("refresh made %d calls, want 1", n)
	}
}

func TestKeysIgnoredWhileLoading(t *testing.T) {
	b := newBackend()
	m := newTestModel(t, b, Options{})

	next, pending := m.Update(keyPress("r"))
	m = next.(Model)
	if !m.ctrl.Busy() {
		t.Fatal("controller not busy after refresh")
	}
	if !strings.Contains(m.View(), "Loading...") {
		t.Errorf("view missing spinner:\n%s", m.View())
	}

	next, cmd := m.Update(keyPress("r"))
	m = next.(Model)
	if cmd != nil {
		t.Error("second refresh dispatched a command while loading")
	}

	for _, msg := range collect(pending) {
		m = send(t, m, msg)
	}
	if m.ctrl.Busy() {
		t.Error("controller still busy after reply")
	}
	if n := b.callCount(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
}

func TestCopyConnection(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("STY", "")

	var clip bytes.Buffer
	b := newBackend()
	b.replies[container.OpView] = running("tcp")
	m := newTestModel(t, b, Options{AutoView: true, Clipboard: &clip})
	for _, msg := range collect(m.Init()) {
		m = send(t, m, msg)
	}

	m = send(t, m, keyPress("y"))
	if !strings.HasPrefix(clip.String(), "\x1b]52;") {
		t.Errorf("clipboard output = %q", clip.String())
	}
	if !strings.Contains(m.View(), "Copied to clipboard.") {
		t.Errorf("view missing notice:\n%s", m.View())
	}
}

func TestOpenHTTPConnection(t *testing.T) {
	b := newBackend()
	b.replies[container.OpView] = running("http")
	m := newTestModel(t, b, Options{AutoView: true})

	var opened string
	m.openURL = func(url string) tea.Cmd {
		opened = url
		return func() tea.Msg { return tuimsg.OpenedMsg{URL: url} }
	}
	for _, msg := range collect(m.Init()) {
		m = send(t, m, msg)
	}

	m = send(t, m, keyPress("o"))
	if opened != "http://chal.example:31337" {
		t.Errorf("opened %q", opened)
	}
	if !strings.Contains(m.View(), "Opened http://chal.example:31337") {
		t.Errorf("view missing notice:\n%s", m.View())
	}
}

func TestOpenIgnoredForTCP(t *testing.T) {
	b := newBackend()
	b.replies[container.OpView] = running("tcp")
	m := newTestModel(t, b, Options{AutoView: true})

	m.openURL = func(string) tea.Cmd {
		t.Error("openURL called for a tcp connection")
		return nil
	}
	for _, msg := range collect(m.Init()) {
		m = send(t, m, msg)
	}
	send(t, m, keyPress("o"))
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = send(t, m, keyPress(string(r)))
	}
	return m
}

func TestSwitchChallenge(t *testing.T) {
	b := newBackend()
	m := newTestModel(t, b, Options{AutoView: true})

	m = send(t, m, keyPress("g"))
	if !m.switching {
		t.Fatal("g did not open the challenge prompt")
	}
	m = typeText(t, m, "42")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.switching {
		t.Error("prompt still open after enter")
	}
	if m.ctrl.ChallengeID() != 42 {
		t.Errorf("ChallengeID = %d, want 42", m.ctrl.ChallengeID())
	}
	if len(b.calls) != 1 || b.calls[0] != (call{container.OpView, 42}) {
		t.Errorf("calls = %v, want a view of 42", b.calls)
	}
	if !strings.Contains(m.View(), "Challenge #42") {
		t.Errorf("view missing new title:\n%s", m.View())
	}
}

func TestSwitchChallengeRejectsBadInput(t *testing.T) {
	m := newTestModel(t, newBackend(), Options{})

	m = send(t, m, keyPress("g"))
	m = typeText(t, m, "abc")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.switching {
		t.Error("prompt closed on invalid input")
	}
	if m.ctrl.ChallengeID() != 1 {
		t.Errorf("ChallengeID changed to %d", m.ctrl.ChallengeID())
	}
	if !strings.Contains(m.View(), "Challenge ID must be a positive number.") {
		t.Errorf("view missing error:\n%s", m.View())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.switching {
		t.Error("esc did not close the prompt")
	}
}

func TestStaleReplyAfterSwitch(t *testing.T) {
	b := newBackend()
	b.replies[container.OpView] = running("tcp")
	m := newTestModel(t, b, Options{})

	next, pending := m.Update(keyPress("r"))
	m = next.(Model)

	m = send(t, m, keyPress("g"))
	m = typeText(t, m, "2")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	for _, msg := range collect(pending) {
		m = send(t, m, msg)
	}

	s := m.ctrl.State()
	if s.ChallengeID != 2 || s.Alert.Kind != lifecycle.AlertNone {
		t.Errorf("stale reply rendered: %s", s)
	}
	if s.Loading {
		t.Error("switch left the panel loading")
	}
}

func TestQuitAndHelp(t *testing.T) {
	m := newTestModel(t, newBackend(), Options{})

	next, _ := m.Update(keyPress("?"))
	m = next.(Model)
	if !m.help.ShowAll {
		t.Error("? did not expand help")
	}

	next, cmd := m.Update(keyPress("q"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if m.View() != "" {
		t.Error("view not cleared after quit")
	}
}

func TestSpinnerStopsWhenIdle(t *testing.T) {
	m := newTestModel(t, newBackend(), Options{})

	tick := m.spinner.Tick()
	if _, cmd := m.Update(tick); cmd != nil {
		t.Error("spinner kept ticking while idle")
	}
}

func TestStartNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "user facing error is shown verbatim",
			err:  errors.NewValidationError("challenge id must be positive"),
			want: "validation error: challenge id must be positive",
		},
		{
			name: "busy",
			err:  errors.NewBusyError("stop", "renew"),
			want: "Another operation is still running.",
		},
		{
			name: "internal retryable error",
			err:  errors.NewTransportError("stop", 3, errors.ErrMalformedReply),
			want: "Error stopping container info. Try again.",
		},
		{
			name: "internal error",
			err:  errors.New("boom"),
			want: "Error stopping container info.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := startNotice(container.OpStop, tt.err); got != tt.want {
				t.Errorf("startNotice() = %q, want %q", got, tt.want)
			}
		})
	}
}
