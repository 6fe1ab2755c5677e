package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"wikiglossary/pkg/config"
	"wikiglossary/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wikiglossary",
	Short: "Crawl a MediaWiki site into a categorized glossary dataset",
	Long: `wikiglossary crawls the articles of a MediaWiki site and turns them into a
glossary: one JSON document per category plus an index, ready to be served as
static files.

The crawl runs in stages (pages, categories, content, build, write). Each
fetch stage is checkpointed in the cache directory, so an interrupted crawl
picks up where it stopped when run again.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.wikiglossary.yaml or ~/.config/wikiglossary/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`wikiglossary {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from every source, with flags given
// precedence over the rest
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	} else if quiet {
		flags["log-level"] = "error"
	}
	return config.Load(configFile, flags)
}
