package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-medbot/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-medbot/config.
Keys missing from the file fall back to environment variables, then defaults.

Supported settings:
  api-url       Chat service URL (env: MEDBOT_API_URL, default: http://localhost:8000)
  output-dir    Default directory for recordings (env: MEDBOT_OUTPUT_DIR)
  device        Audio input device (env: MEDBOT_DEVICE)
  capture       auto, direct or compressed (env: MEDBOT_CAPTURE, default: auto)
  log-level     debug, info, warn or error (env: MEDBOT_LOG_LEVEL, default: warn)`,
		Example: `  medbot config set api-url http://192.168.1.20:8000
  medbot config set output-dir ~/Documents/medbot
  medbot config get capture
  medbot config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value. An empty value removes the key.

The output directory is created if it doesn't exist.`,
		Example: `  medbot config set capture compressed
  medbot config set device ""`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get the effective value of a key.

Prints the value to stdout, or nothing if not set.`,
		Example: `  medbot config get api-url`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Long:    `List the effective value of every key.`,
		Example: `  medbot config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if key == config.KeyOutputDir && value != "" {
		// Store the expanded path for consistency.
		value = config.ExpandPath(value)
	}
	if key == config.KeyCapture || key == config.KeyLogLevel {
		value = strings.ToLower(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(env.Stderr, "Unset %s\n", key)
		return nil
	}
	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if err := config.Validate(key, ""); err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}

	if value := cfg.Value(key); value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}

	for _, key := range config.Keys() {
		fmt.Fprintf(env.Stdout, "%s=%s\n", key, cfg.Value(key))
	}
	return nil
}
