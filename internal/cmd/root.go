package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/Iron-Ham/chalbox/internal/cmd/config"
	"github.com/Iron-Ham/chalbox/internal/config"
	"github.com/Iron-Ham/chalbox/internal/logging"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chalbox",
		Short: "Manage per-player CTF challenge containers",
		Long: `Chalbox talks to a CTF platform's containers API to view, create,
extend, and terminate the container backing a challenge.

Run one-shot commands such as 'chalbox view 42', or 'chalbox watch 42'
for the interactive panel. 'chalbox dev backend' starts an in-memory
backend for local testing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/chalbox/config.yaml)")
	flags.String("backend", "", "base URL of the CTF platform (overrides backend.url)")
	flags.String("csrf-token", "", "CSRF token sent with every call (overrides backend.csrf_token)")
	flags.String("session", "", "platform session cookie value (overrides backend.session_cookie)")
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("backend.url", flags.Lookup("backend"))
	_ = viper.BindPFlag("backend.csrf_token", flags.Lookup("csrf-token"))
	_ = viper.BindPFlag("backend.session_cookie", flags.Lookup("session"))

	for _, c := range newOperationCmds() {
		root.AddCommand(c)
	}
	root.AddCommand(newWatchCmd())
	root.AddCommand(newDevCmd())
	configcmd.Register(root)

	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/chalbox")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CHALBOX")
	// e.g. CHALBOX_BACKEND_CSRF_TOKEN for backend.csrf_token
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig reads and validates the merged configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
func CreateLogger(dir string, cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotationConfig := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}

	logger, err := logging.NewLoggerWithRotation(dir, cfg.Logging.Level, rotationConfig)
	if err != nil {
		// Log creation failure shouldn't prevent the command from running
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}

	return logger
}
