package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/chalbox/internal/config"
	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/errors"
	"github.com/Iron-Ham/chalbox/internal/lifecycle"
	"github.com/Iron-Ham/chalbox/internal/logging"
	"github.com/Iron-Ham/chalbox/internal/tui/styles"
	"github.com/Iron-Ham/chalbox/internal/tui/view"
)

// ErrOperationFailed is returned after the panel of a failed operation has
// been printed, so callers only need to set the exit status.
var ErrOperationFailed = errors.New("container operation failed")

// maxPanelWidth caps the one-shot panel on wide terminals.
const maxPanelWidth = 80

var operationHelp = map[container.Operation][2]string{
	container.OpView: {
		"Show the challenge's container",
		"Fetch the current container for a challenge and print its connection details.",
	},
	container.OpRequest: {
		"Create a container for a challenge",
		"Ask the platform to start a container for a challenge and print how to connect.",
	},
	container.OpRenew: {
		"Extend the challenge's container",
		"Reset the expiry of the running container for a challenge.",
	},
	container.OpStop: {
		"Terminate the challenge's container",
		"Stop and remove the running container for a challenge.",
	},
}

func newOperationCmds() []*cobra.Command {
	var cmds []*cobra.Command
	for _, op := range container.Operations() {
		cmds = append(cmds, newOperationCmd(op))
	}
	return cmds
}

func newOperationCmd(op container.Operation) *cobra.Command {
	var asJSON bool

	help := operationHelp[op]
	c := &cobra.Command{
		Use:   string(op) + " <challenge-id>",
		Short: help[0],
		Long: help[1] + `

The panel is printed as plain text when stdout is not a terminal, or as
JSON with --json. The command exits non-zero when the platform reports
an error or cannot be reached.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, op, args[0], asJSON)
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the resulting panel state as JSON")
	return c
}

func runOperation(cmd *cobra.Command, op container.Operation, arg string, asJSON bool) error {
	id, err := parseChallengeID(arg)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := CreateLogger(config.StateDir(), cfg)
	defer func() { _ = logger.Close() }()

	ctrl, err := newController(cfg, id, logger)
	if err != nil {
		return err
	}

	s, err := ctrl.Run(cmd.Context(), op)
	if err != nil {
		return err
	}

	if err := printState(cmd.OutOrStdout(), s, cfg.TUI.Theme, asJSON); err != nil {
		return err
	}
	if s.Phase == lifecycle.PhaseError {
		return ErrOperationFailed
	}
	return nil
}

// parseChallengeID converts a command argument into a positive challenge ID.
func parseChallengeID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("challenge id must be a positive integer").
			WithField("chal_id").
			WithValue(arg).
			WithCause(errors.ErrInvalidChallenge)
	}
	return id, nil
}

// newClient builds a containers API client from the backend settings.
func newClient(cfg *config.Config, logger *logging.Logger) (*container.Client, error) {
	opts := []container.ClientOption{container.WithLogger(logger)}
	if cfg.Backend.CSRFToken != "" {
		opts = append(opts, container.WithTokenSource(container.StaticToken(cfg.Backend.CSRFToken)))
	}
	if cfg.Backend.SessionCookie != "" {
		opts = append(opts, container.WithSessionCookie(cfg.Backend.SessionCookie))
	}
	if timeout := cfg.Backend.Timeout(); timeout > 0 {
		opts = append(opts, container.WithTimeout(timeout))
	}
	return container.NewClient(cfg.Backend.URL, opts...)
}

func newController(cfg *config.Config, id int, logger *logging.Logger) (*lifecycle.Controller, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return lifecycle.NewController(client, id,
		lifecycle.WithLogger(logger),
		lifecycle.WithStaleGuard(cfg.TUI.GuardStaleResponses),
	), nil
}

func printState(w io.Writer, s lifecycle.UIState, theme string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := fmt.Fprintln(w, view.Plain(s))
		return err
	}

	if os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	width := 0
	if termWidth, _, err := term.GetSize(int(f.Fd())); err == nil {
		width = min(termWidth, maxPanelWidth)
	}
	_, err := fmt.Fprintln(w, view.Panel(s, view.Options{
		Theme:      styles.NewTheme(theme),
		Hyperlinks: true,
		Width:      width,
	}))
	return err
}
