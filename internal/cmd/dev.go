package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/chalbox/internal/config"
	"github.com/Iron-Ham/chalbox/internal/devserver"
)

func newDevCmd() *cobra.Command {
	dev := &cobra.Command{
		Use:   "dev",
		Short: "Local development helpers",
	}
	dev.AddCommand(newDevBackendCmd())
	return dev
}

func newDevBackendCmd() *cobra.Command {
	var challenges []int

	c := &cobra.Command{
		Use:   "backend",
		Short: "Run an in-memory containers backend",
		Long: `Run an in-memory implementation of the platform's containers API.

It serves the same four endpoints with the same reply shapes, limits, and
error messages, without starting real containers. Point a client at it
with --backend http://<listen>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := CreateLogger(config.StateDir(), cfg)
			defer func() { _ = logger.Close() }()

			opts := []devserver.Option{devserver.WithLogger(logger)}
			if len(challenges) > 0 {
				opts = append(opts, devserver.WithChallenges(challenges...))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Dev backend listening on http://%s\n", cfg.Dev.Listen)
			if err := devserver.New(cfg.Dev, opts...).Listen(ctx, cfg.Dev.Listen); err != nil && !isCanceled(ctx) {
				return err
			}
			return nil
		},
	}

	flags := c.Flags()
	flags.IntSliceVar(&challenges, "challenge", nil, "known challenge IDs (default: any positive ID)")
	flags.String("listen", "", "address to bind (overrides dev.listen)")
	flags.String("hostname", "", "hostname reported to clients (overrides dev.hostname)")
	flags.String("connect", "", "connection type reported: tcp or http (overrides dev.connect)")
	flags.Int("expiration", 0, "container lifetime in seconds (overrides dev.expiration_seconds)")
	flags.Int("max-containers", 0, "containers one player may run at once (overrides dev.max_containers)")
	flags.String("require-csrf", "", "CSRF token every call must carry (overrides dev.csrf_token)")
	flags.Bool("rate-limit", true, "apply per-minute request limits (overrides dev.rate_limit)")
	_ = viper.BindPFlag("dev.listen", flags.Lookup("listen"))
	_ = viper.BindPFlag("dev.hostname", flags.Lookup("hostname"))
	_ = viper.BindPFlag("dev.connect", flags.Lookup("connect"))
	_ = viper.BindPFlag("dev.expiration_seconds", flags.Lookup("expiration"))
	_ = viper.BindPFlag("dev.max_containers", flags.Lookup("max-containers"))
	_ = viper.BindPFlag("dev.csrf_token", flags.Lookup("require-csrf"))
	_ = viper.BindPFlag("dev.rate_limit", flags.Lookup("rate-limit"))

	return c
}

func isCanceled(ctx context.Context) bool {
	return ctx.Err() != nil
}
