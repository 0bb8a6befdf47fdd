package msg

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/aymanbagabas/go-osc52/v2"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/chalbox/internal/lifecycle"
)

// CallBackend returns a command that performs the ticket's operation.
// A panicking backend is reported as a transport failure.
func CallBackend(ctx context.Context, backend lifecycle.Backend, t lifecycle.Ticket) tea.Cmd {
	return func() tea.Msg {
		res, err := lifecycle.Invoke(ctx, backend, t)
		return ResultMsg{Ticket: t, Result: res, Err: err}
	}
}

// CopyToClipboard returns a command that writes text to the terminal
// clipboard with an OSC 52 sequence, so it also works over SSH.
func CopyToClipboard(w io.Writer, text string) tea.Cmd {
	return func() tea.Msg {
		seq := osc52.New(text)
		switch {
		case os.Getenv("TMUX") != "":
			seq = seq.Tmux()
		case os.Getenv("STY") != "":
			seq = seq.Screen()
		}
		_, err := seq.WriteTo(w)
		return CopiedMsg{Text: text, Err: err}
	}
}

// OpenURL returns a command that opens url with the platform's browser
// launcher.
func OpenURL(url string) tea.Cmd {
	return func() tea.Msg {
		name, args := BrowserCommand(runtime.GOOS, url)
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return OpenedMsg{URL: url, Err: err}
		}
		go func() { _ = cmd.Wait() }()
		return OpenedMsg{URL: url}
	}
}

// BrowserCommand returns the launcher invocation for goos.
func BrowserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
