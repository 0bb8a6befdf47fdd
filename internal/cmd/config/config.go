// Package config provides CLI commands for managing chalbox configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/chalbox/internal/config"
)

const redacted = "(set)"

// Register adds the config command tree to parent.
func Register(parent *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify chalbox configuration",
		Long: `View or modify chalbox configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
		RunE: runConfigShow,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  chalbox config set backend.url https://ctf.example.org
  chalbox config set tui.theme mono
  chalbox config set dev.max_containers 5

Valid keys:
` + keyHelp(),
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long:  `Create a default config file at ~/.config/chalbox/config.yaml with all available options.`,
		RunE:  runConfigInit,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		RunE:  runConfigPath,
	})

	parent.AddCommand(configCmd)
}

type keyType int

const (
	typeString keyType = iota
	typeBool
	typeInt
)

type keySpec struct {
	kind    keyType
	help    string
	options []string
}

var validKeys = map[string]keySpec{
	"backend.url":               {typeString, "Base URL of the CTF platform", nil},
	"backend.csrf_token":        {typeString, "CSRF token sent with every call", nil},
	"backend.session_cookie":    {typeString, "Platform session cookie value", nil},
	"backend.timeout_seconds":   {typeInt, "Per-call timeout in seconds (0 = none)", nil},
	"tui.theme":                 {typeString, "Panel theme", appconfig.ValidThemes()},
	"tui.guard_stale_responses": {typeBool, "Drop replies for a previous challenge (true/false)", nil},
	"logging.enabled":           {typeBool, "Write a debug log (true/false)", nil},
	"logging.level":             {typeString, "Log level", appconfig.ValidLogLevels()},
	"logging.max_size_mb":       {typeInt, "Log size before rotation in MB", nil},
	"logging.max_backups":       {typeInt, "Rotated log files to keep", nil},
	"dev.listen":                {typeString, "Dev backend listen address", nil},
	"dev.expiration_seconds":    {typeInt, "Dev container lifetime in seconds", nil},
	"dev.hostname":              {typeString, "Hostname the dev backend reports", nil},
	"dev.connect":               {typeString, "Connection type the dev backend reports", appconfig.ValidConnectTypes()},
	"dev.max_containers":        {typeInt, "Dev containers per player", nil},
	"dev.csrf_token":            {typeString, "CSRF token the dev backend requires", nil},
	"dev.rate_limit":            {typeBool, "Apply per-minute limits in the dev backend (true/false)", nil},
}

func sortedKeys() []string {
	keys := make([]string, 0, len(validKeys))
	for k := range validKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func keyHelp() string {
	var sb strings.Builder
	for _, k := range sortedKeys() {
		spec := validKeys[k]
		fmt.Fprintf(&sb, "  %-26s - %s\n", k, spec.help)
		if len(spec.options) > 0 {
			fmt.Fprintf(&sb, "  %-26s   Options: %s\n", "", strings.Join(spec.options, ", "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := appconfig.Get()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	// Secrets are never echoed back
	shown := *cfg
	if shown.Backend.CSRFToken != "" {
		shown.Backend.CSRFToken = redacted
	}
	if shown.Backend.SessionCookie != "" {
		shown.Backend.SessionCookie = redacted
	}
	if shown.Dev.CSRFToken != "" {
		shown.Dev.CSRFToken = redacted
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	spec, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'chalbox config set --help' to see valid keys", key)
	}

	typedValue, err := parseValue(key, value, spec)
	if err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := appconfig.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)
	if _, err := appconfig.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

func parseValue(key, value string, spec keySpec) (any, error) {
	switch spec.kind {
	case typeBool:
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case typeInt:
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	default:
		if len(spec.options) > 0 && !slices.Contains(spec.options, value) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(spec.options, ", "))
		}
		return value, nil
	}
}

const configTemplate = `# chalbox configuration

# CTF platform the containers API lives on
backend:
  # Base URL; /containers/api/* is resolved against it
  url: http://localhost:8000
  # CSRF token and session cookie of a logged-in browser session
  csrf_token: ""
  session_cookie: ""
  # Per-call timeout in seconds (0 = no client timeout)
  timeout_seconds: 0

# Interactive panel
tui:
  # Options: default, mono
  theme: default
  # Drop replies that arrive after switching to another challenge
  guard_stale_responses: true

# Debug log written to the state directory
logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  max_size_mb: 10
  max_backups: 3

# In-memory backend started by 'chalbox dev backend'
dev:
  listen: 127.0.0.1:8000
  expiration_seconds: 3600
  hostname: localhost
  # Options: tcp, http
  connect: tcp
  max_containers: 3
  # When set, every call must carry this CSRF-Token header
  csrf_token: ""
  rate_limit: true
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := appconfig.ConfigDir()
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'chalbox config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold a session cookie
	if err := os.WriteFile(configFile, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to point chalbox at your CTF platform.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. $HOME/.config/chalbox/config.yaml")
	fmt.Fprintln(out, "  3. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: CHALBOX_* (e.g., CHALBOX_BACKEND_URL)")

	return nil
}
