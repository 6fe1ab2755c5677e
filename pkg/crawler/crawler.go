package crawler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"wikiglossary/internal/fetchpool"
	"wikiglossary/pkg/artifact"
	"wikiglossary/pkg/cache"
	"wikiglossary/pkg/classify"
	"wikiglossary/pkg/config"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/models"
)

// Stage names used in logs, errors and the crawl report
const (
	StagePages      = "pages"
	StageCategories = "categories"
	StageContent    = "content"
	StageBuild      = "build"
	StageWrite      = "write"
)

// ErrCursorLoop is returned when the page listing hands back a continuation
// cursor it has already returned
var ErrCursorLoop = errors.New("page listing cursor repeated")

// Titles matching any of these are never glossary entries
var builtinExcludes = []string{
	`(?i)^\s*(file|image|media|category|template|user|help|special|mediawiki|module|project|forum|message wall|user blog|board)\s*:`,
	`(?i)^\s*([^:]*\s)?talk\s*:`,
	`(?i)^\s*([^:]*\s)?wiki\s*:`,
	`(?i)\(disambiguation\)\s*$`,
	`(?i)\bsandbox\b`,
	`(?i)\bstubs?\b`,
	`(?i)\b(candidates? for deletion|articles for deletion|pages? to delete)\b`,
}

// Pipeline runs the crawl stages in order, checkpointing each one in the
// cache, and turns the fetched pages into glossary artifacts
type Pipeline struct {
	cfg        *config.Config
	client     WikiClient
	store      *cache.Store
	writer     *artifact.Writer
	classifier *classify.Classifier
	logger     logger.Logger
	progress   Progress
	exclude    []*regexp.Regexp
	fresh      bool
	now        func() time.Time

	counters models.Counters
	stages   []models.StageTiming
}

// New creates a Pipeline. Exclusion patterns from cfg are added to the
// built-in ones and must compile.
func New(cfg *config.Config, client WikiClient, store *cache.Store, writer *artifact.Writer, classifier *classify.Classifier, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if classifier == nil {
		classifier = classify.Default()
	}

	patterns := append(append([]string{}, builtinExcludes...), cfg.Crawl.ExcludePatterns...)
	for _, ns := range cfg.Wiki.MetaNamespaces {
		patterns = append(patterns, `(?i)^\s*`+regexp.QuoteMeta(strings.TrimSpace(ns))+`\s*:`)
	}
	exclude := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		exclude = append(exclude, re)
	}

	return &Pipeline{
		cfg:        cfg,
		client:     client,
		store:      store,
		writer:     writer,
		classifier: classifier,
		logger:     log,
		progress:   nopProgress{},
		exclude:    exclude,
		now:        time.Now,
	}, nil
}

// SetProgress attaches a progress display
func (p *Pipeline) SetProgress(progress Progress) {
	if progress == nil {
		progress = nopProgress{}
	}
	p.progress = progress
}

// SetFresh makes Run clear every checkpoint before the first stage
func (p *Pipeline) SetFresh(fresh bool) {
	p.fresh = fresh
}

// Run executes the whole crawl under the cache lock and returns the run
// summary. Any error is wrapped with the name of the failing stage; running
// again resumes from the checkpoints already written.
func (p *Pipeline) Run(ctx context.Context) (*models.Summary, error) {
	runID := ulid.Make().String()
	p.logger = p.logger.WithField("run_id", runID)
	p.counters = models.Counters{}
	p.stages = nil

	summary := &models.Summary{RunID: runID, StartedAt: p.now().UTC()}

	unlock, err := p.store.Lock(ctx, p.cfg.Cache.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if p.fresh {
		p.logger.Info("Clearing checkpoints before crawl")
		if err := p.store.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	p.logger.InfoWithFields("Starting crawl", map[string]interface{}{
		"api":       p.cfg.Wiki.APIURL,
		"cache_dir": p.store.Dir(),
		"output":    p.writer.Dir(),
		"workers":   p.workers(),
	})

	pages, err := p.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StagePages, err)
	}
	cats, err := p.FetchCategories(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageCategories, err)
	}
	content, err := p.FetchContent(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageContent, err)
	}

	start := p.beginStage(StageBuild, nil)
	terms, counters := p.Build(pages, cats, content)
	counters.Excluded = p.counters.Excluded
	p.counters = counters
	p.finishStage(StageBuild, false, len(terms), start)

	start = p.beginStage(StageWrite, nil)
	index, err := p.writer.Write(terms)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageWrite, err)
	}
	p.finishStage(StageWrite, false, len(index.Categories), start)

	summary.FinishedAt = p.now().UTC()
	summary.Pages = len(pages)
	summary.Terms = index.TotalTerms
	summary.Categories = len(index.Categories)
	summary.Counters = p.counters
	summary.Stages = p.stages

	if err := p.writer.WriteReport(summary); err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageWrite, err)
	}

	logger.LogMetrics(p.logger, "crawl", map[string]interface{}{
		"pages":           summary.Pages,
		"terms":           summary.Terms,
		"categories":      summary.Categories,
		"redirects":       p.counters.Redirects,
		"stubs":           p.counters.Stubs,
		"empty":           p.counters.Empty,
		"missing_content": p.counters.MissingContent,
		"uncategorized":   p.counters.Uncategorized,
		"excluded":        p.counters.Excluded,
		"duration":        summary.FinishedAt.Sub(summary.StartedAt).String(),
	})
	return summary, nil
}

// Enumerate lists every in-scope page of the configured namespace, following
// continuation cursors. A cached page list is returned without any request.
func (p *Pipeline) Enumerate(ctx context.Context) ([]models.PageRecord, error) {
	start := p.beginStage(StagePages, nil)

	var pages []models.PageRecord
	found, err := p.store.Load(cache.KeyPages, &pages)
	if err != nil {
		return nil, err
	}
	if found {
		p.finishStage(StagePages, true, len(pages), start)
		return pages, nil
	}

	pages = []models.PageRecord{}
	seen := make(map[int]bool)
	visited := make(map[string]bool)
	cursor := ""
	for batch := 1; ; batch++ {
		list, err := p.client.ListPages(ctx, p.cfg.Wiki.Namespace, p.cfg.Crawl.PageLimit, cursor)
		if err != nil {
			return nil, err
		}

		for _, page := range list.Pages {
			if seen[page.PageID] {
				continue
			}
			seen[page.PageID] = true
			if p.isExcluded(page.Title) {
				p.counters.Excluded++
				p.logger.DebugWithFields("Excluded page", map[string]interface{}{"title": page.Title})
				continue
			}
			pages = append(pages, page)
		}
		p.progress.BatchDone(StagePages, len(pages), 0)
		p.logger.DebugWithFields("Page list batch", map[string]interface{}{
			"batch": batch,
			"pages": len(pages),
		})

		if list.Cursor == "" {
			break
		}
		if visited[list.Cursor] {
			return nil, fmt.Errorf("%w: %q after %d batches", ErrCursorLoop, list.Cursor, batch)
		}
		visited[list.Cursor] = true
		cursor = list.Cursor
	}

	if err := p.store.Save(cache.KeyPages, pages); err != nil {
		return nil, err
	}
	p.finishStage(StagePages, false, len(pages), start)
	return pages, nil
}

// FetchCategories retrieves the raw categories of every page in batches.
// Every page gets an entry, empty when it has no categories.
func (p *Pipeline) FetchCategories(ctx context.Context, pages []models.PageRecord) (models.CategoryMap, error) {
	start := p.beginStage(StageCategories, map[string]interface{}{"pages": len(pages)})

	cats := models.CategoryMap{}
	found, err := p.store.Load(cache.KeyCategories, &cats)
	if err != nil {
		return nil, err
	}
	if found {
		p.finishStage(StageCategories, true, len(cats), start)
		return cats, nil
	}

	ids := pageIDs(pages)
	done := 0
	err = fetchpool.Run(ctx, p.workers(), fetchpool.Batches(ids, p.cfg.Crawl.BatchSize), p.client.FetchCategories,
		func(r fetchpool.Result[models.CategoryMap]) error {
			for id, names := range r.Data {
				cats[id] = names
			}
			done += len(r.Job.IDs)
			p.reportBatch(StageCategories, done, len(ids))
			return nil
		}, p.logger)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if cats[id] == nil {
			cats[id] = []string{}
		}
	}

	if err := p.store.Save(cache.KeyCategories, cats); err != nil {
		return nil, err
	}
	p.finishStage(StageCategories, false, len(cats), start)
	return cats, nil
}

// FetchContent retrieves the raw markup of every page. Progress is saved to
// the partial checkpoint every checkpoint_every pages and whenever the stage
// stops early, and a later call resumes with only the pages still missing.
func (p *Pipeline) FetchContent(ctx context.Context, pages []models.PageRecord) (models.ContentMap, error) {
	start := p.beginStage(StageContent, map[string]interface{}{"pages": len(pages)})

	content := models.ContentMap{}
	found, err := p.store.Load(cache.KeyContent, &content)
	if err != nil {
		return nil, err
	}
	if found {
		p.finishStage(StageContent, true, len(content), start)
		return content, nil
	}

	if _, err := p.store.Load(cache.KeyContentPartial, &content); err != nil {
		return nil, err
	}
	resumed := len(content) > 0

	var remaining []int
	for _, id := range pageIDs(pages) {
		if _, ok := content[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	if resumed {
		p.logger.InfoWithFields("Resuming content fetch from partial checkpoint", map[string]interface{}{
			"cached":    len(content),
			"remaining": len(remaining),
		})
	}

	every := p.cfg.Crawl.CheckpointEvery
	sinceSave := 0
	done := 0
	err = fetchpool.Run(ctx, p.workers(), fetchpool.Batches(remaining, p.cfg.Crawl.BatchSize), p.client.FetchContent,
		func(r fetchpool.Result[models.ContentMap]) error {
			for id, raw := range r.Data {
				content[id] = raw
			}
			done += len(r.Job.IDs)
			sinceSave += len(r.Job.IDs)
			p.reportBatch(StageContent, done, len(remaining))

			if every > 0 && sinceSave >= every {
				if err := p.store.Save(cache.KeyContentPartial, content); err != nil {
					return err
				}
				sinceSave = 0
			}
			return nil
		}, p.logger)
	if err != nil {
		if sinceSave > 0 {
			if saveErr := p.store.Save(cache.KeyContentPartial, content); saveErr != nil {
				p.logger.WithError(saveErr).Warn("Failed to flush partial content checkpoint")
			} else {
				p.logger.InfoWithFields("Flushed partial content checkpoint", map[string]interface{}{
					"pages": len(content),
				})
			}
		}
		return nil, err
	}

	if len(remaining) > 0 {
		if err := p.store.Save(cache.KeyContentPartial, content); err != nil {
			return nil, err
		}
	}
	if err := p.store.Save(cache.KeyContent, content); err != nil {
		return nil, err
	}
	if p.cfg.Cache.PrunePartial {
		if err := p.store.Delete(cache.KeyContentPartial); err != nil {
			p.logger.WithError(err).Warn("Failed to prune partial content checkpoint")
		}
	}

	p.finishStage(StageContent, resumed, len(content), start)
	return content, nil
}

func (p *Pipeline) isExcluded(title string) bool {
	for _, re := range p.exclude {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

func (p *Pipeline) workers() int {
	if p.cfg.Crawl.Workers < 1 {
		return 1
	}
	return p.cfg.Crawl.Workers
}

func (p *Pipeline) beginStage(stage string, fields map[string]interface{}) time.Time {
	logger.LogStageStart(p.logger, stage, fields)
	p.progress.StageStarted(stage)
	return p.now()
}

func (p *Pipeline) finishStage(stage string, resumed bool, items int, start time.Time) {
	elapsed := p.now().Sub(start)
	if resumed {
		p.logger.InfoWithFields("Stage loaded from checkpoint", map[string]interface{}{
			"stage": stage,
			"items": items,
		})
	}
	logger.LogStageComplete(p.logger, stage, items, elapsed)
	p.progress.StageFinished(stage, items, resumed, elapsed)
	p.stages = append(p.stages, models.StageTiming{
		Stage:    stage,
		Resumed:  resumed,
		Items:    items,
		Duration: elapsed,
	})
}

func (p *Pipeline) reportBatch(stage string, done, total int) {
	logger.LogBatchProgress(p.logger, stage, done, total)
	p.progress.BatchDone(stage, done, total)
}

func pageIDs(pages []models.PageRecord) []int {
	ids := make([]int, len(pages))
	for i, page := range pages {
		ids[i] = page.PageID
	}
	return ids
}
