package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/chalbox/internal/config"
	"github.com/Iron-Ham/chalbox/internal/tui"
)

func newWatchCmd() *cobra.Command {
	var noFetch bool

	c := &cobra.Command{
		Use:   "watch <challenge-id>",
		Short: "Open the interactive panel for a challenge",
		Long: `Open the interactive challenge panel.

Keys: c create, e extend, t terminate, r refresh, y copy the connection,
o open an http challenge in the browser, g switch challenge, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChallengeID(args[0])
			if err != nil {
				return err
			}
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("watch needs an interactive terminal; use 'chalbox view %d' instead", id)
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

			app := tui.New(cmd.Context(), ctrl, tui.Options{
				Theme:      cfg.TUI.Theme,
				Hyperlinks: true,
				AutoView:   !noFetch,
				Logger:     logger,
			})
			return app.Run()
		},
	}
	c.Flags().BoolVar(&noFetch, "no-fetch", false, "do not fetch container info on start")
	return c
}
