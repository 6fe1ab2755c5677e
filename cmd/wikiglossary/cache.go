package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"wikiglossary/pkg/cache"
	"wikiglossary/pkg/config"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/ui"
)

var cacheDir string

// cacheCmd groups checkpoint maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear crawl checkpoints",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which checkpoints exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openCache()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache directory: %s\n", cfg.Cache.Directory)
		for _, entry := range store.Info() {
			if !entry.Exists {
				fmt.Fprintf(out, "  %-18s %s\n", entry.Key, ui.Dim("missing"))
				continue
			}
			fmt.Fprintf(out, "  %-18s %s  %d bytes  %s\n", entry.Key, ui.Green("present"),
				entry.Size, entry.ModTime.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every checkpoint so the next crawl starts over",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openCache()
		if err != nil {
			return err
		}

		unlock, err := store.Lock(context.Background(), cfg.Cache.LockTimeout)
		if err != nil {
			return err
		}
		defer unlock()

		if err := store.Clear(); err != nil {
			return err
		}
		ui.PrintSuccess("Checkpoints cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for crawl checkpoints")
}

func openCache() (*config.Config, *cache.Store, error) {
	flags := make(map[string]interface{})
	if cacheDir != "" {
		flags["cache-dir"] = cacheDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := cache.NewStore(cfg.Cache.Directory, logger.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
