package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"wikiglossary/pkg/artifact"
	"wikiglossary/pkg/cache"
	"wikiglossary/pkg/classify"
	"wikiglossary/pkg/crawler"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/mediawiki"
	"wikiglossary/pkg/ui"
)

var (
	// Crawl command flags
	crawlOutput       string
	crawlCacheDir     string
	crawlWorkers      int
	crawlRateInterval time.Duration
	crawlFresh        bool
	crawlPrunePartial bool
	crawlPretty       bool
	crawlNotify       bool
)

// crawlCmd runs the full pipeline
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the wiki and write the glossary artifacts",
	Long: `Crawl the configured MediaWiki site and write the glossary artifacts.

Each fetch stage is checkpointed in the cache directory. Interrupting the crawl
(Ctrl+C) saves the content fetched so far; running the command again resumes
from the checkpoints instead of starting over. Use --fresh to discard them.`,
	Example: `  # Crawl with the default configuration
  wikiglossary crawl

  # Write artifacts somewhere else and slow requests down
  wikiglossary crawl --output ./public/glossary --rate-interval 1s

  # Start over, ignoring existing checkpoints
  wikiglossary crawl --fresh`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "output directory for glossary artifacts")
	crawlCmd.Flags().StringVar(&crawlCacheDir, "cache-dir", "", "directory for crawl checkpoints")
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 1, "number of concurrent batch fetchers (1-8)")
	crawlCmd.Flags().DurationVar(&crawlRateInterval, "rate-interval", 500*time.Millisecond, "minimum interval between API requests")
	crawlCmd.Flags().BoolVar(&crawlFresh, "fresh", false, "clear all checkpoints before crawling")
	crawlCmd.Flags().BoolVar(&crawlPrunePartial, "prune-partial", false, "delete the partial content checkpoint after a complete fetch")
	crawlCmd.Flags().BoolVar(&crawlPretty, "pretty", false, "indent JSON artifacts")
	crawlCmd.Flags().BoolVar(&crawlNotify, "notify", false, "send a desktop notification when the crawl ends")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if crawlOutput != "" {
		flags["output"] = crawlOutput
	}
	if crawlCacheDir != "" {
		flags["cache-dir"] = crawlCacheDir
	}
	if cmd.Flags().Changed("workers") {
		flags["workers"] = crawlWorkers
	}
	if cmd.Flags().Changed("rate-interval") {
		flags["rate-interval"] = crawlRateInterval
	}
	if cmd.Flags().Changed("prune-partial") {
		flags["prune-partial"] = crawlPrunePartial
	}
	if cmd.Flags().Changed("pretty") {
		flags["pretty"] = crawlPretty
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("wikiglossary starting")

	ui.PrintBanner()
	ui.PrintInfo("Wiki", cfg.Wiki.APIURL)
	ui.PrintInfo("Output", cfg.Output.Directory)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.NewStore(cfg.Cache.Directory, log)
	if err != nil {
		return err
	}
	writer, err := artifact.NewWriter(&cfg.Output, log)
	if err != nil {
		return err
	}
	classifier, err := classify.FromConfig(&cfg.Classifier)
	if err != nil {
		return fmt.Errorf("invalid classifier rules: %w", err)
	}
	log.DebugWithFields("Classifier ready", map[string]interface{}{
		"rules":    len(classifier.Rules()),
		"fallback": classifier.Fallback(),
	})

	pipeline, err := crawler.New(cfg, mediawiki.NewClientFromConfig(cfg, log), store, writer, classifier, log)
	if err != nil {
		return err
	}
	pipeline.SetFresh(crawlFresh)
	if !ui.IsQuietMode() {
		pipeline.SetProgress(ui.NewStageTracker())
	}

	notifier := ui.NewNotifier(crawlNotify)
	summary, err := pipeline.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Crawl interrupted, run the command again to resume")
		}
		log.WithError(err).Error("Crawl failed")
		notifier.SendError("Crawl failed", err.Error())
		return err
	}

	ui.PrintInfo("Run", summary.RunID)
	ui.PrintInfo("Terms", fmt.Sprintf("%d in %d categories from %d pages", summary.Terms, summary.Categories, summary.Pages))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d redirects, %d stubs, %d empty, %d missing, %d excluded",
		summary.Counters.Redirects, summary.Counters.Stubs, summary.Counters.Empty,
		summary.Counters.MissingContent, summary.Counters.Excluded))
	if summary.Counters.Uncategorized > 0 {
		ui.PrintWarning("Uncategorized terms", summary.Counters.Uncategorized)
	}
	notifier.SendSuccess("Crawl complete", fmt.Sprintf("%d glossary terms written to %s", summary.Terms, writer.Dir()))
	return nil
}
