// Package tui implements the interactive challenge panel.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/chalbox/internal/lifecycle"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
}

// New creates a new TUI application for ctrl.
func New(ctx context.Context, ctrl *lifecycle.Controller, opts Options) *App {
	return &App{model: NewModel(ctx, ctrl, opts)}
}

// Run starts the TUI application and blocks until the user quits.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)

	return err
}
