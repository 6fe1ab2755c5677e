package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"wikiglossary/pkg/config"
	"wikiglossary/pkg/ui"
)

var forceInit bool

// configCmd groups configuration file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage wikiglossary configuration files.

Configuration is resolved from, highest priority first:
  - Command line flags
  - WIKIGLOSSARY_* environment variables
  - .env files (./.env and ~/.wikiglossary.env)
  - Configuration file (--config, ./.wikiglossary.yaml, ~/.config/wikiglossary/config.yaml)
  - Built-in defaults`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ".wikiglossary.yaml"
		if configFile != "" {
			path = configFile
		}
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration written to " + path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the effective configuration for errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(nil); err != nil {
			var joined interface{ Unwrap() []error }
			if errors.As(err, &joined) {
				for _, e := range joined.Unwrap() {
					ui.PrintError("  " + e.Error())
				}
			} else {
				for _, line := range strings.Split(err.Error(), "\n") {
					ui.PrintError("  " + line)
				}
			}
			return errors.New("configuration is invalid")
		}
		ui.PrintSuccess("Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}
