package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"wikiglossary/pkg/config"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/models"
	"wikiglossary/pkg/storage"
)

// Writer partitions glossary terms by category and writes the per-category
// documents and the index into the output directory
type Writer struct {
	files      *storage.Manager
	indexFile  string
	reportFile string
	pretty     bool
	now        func() time.Time
	logger     logger.Logger
}

// NewWriter creates a Writer for the configured output directory
func NewWriter(cfg *config.OutputConfig, log logger.Logger) (*Writer, error) {
	files, err := storage.NewManager(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	indexFile := cfg.IndexFile
	if indexFile == "" {
		indexFile = "index.json"
	}
	reportFile := cfg.ReportFile
	if reportFile == "" {
		reportFile = "crawl-report.json"
	}

	return &Writer{
		files:      files,
		indexFile:  indexFile,
		reportFile: reportFile,
		pretty:     cfg.Pretty,
		now:        time.Now,
		logger:     log,
	}, nil
}

// SetClock replaces the clock used for lastUpdated timestamps
func (w *Writer) SetClock(now func() time.Time) {
	w.now = now
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.files.Dir()
}

type categoryGroup struct {
	name  string
	slug  string
	terms []models.GlossaryTerm
}

// Write emits one <slug>.json per non-empty category followed by the index.
// Every file is replaced atomically. The index is written last so that it
// never references a category document that does not exist yet.
func (w *Writer) Write(terms []models.GlossaryTerm) (*models.Index, error) {
	stamp := w.now().UTC().Format(time.RFC3339)
	groups := w.partition(terms)

	index := &models.Index{
		Categories:  make([]models.CategoryIndexEntry, 0, len(groups)),
		TermsBySlug: make(map[string][]string, len(groups)),
		TotalTerms:  len(terms),
		LastUpdated: stamp,
	}

	current := map[string]bool{w.indexFile: true, w.reportFile: true}
	for _, g := range groups {
		current[g.slug+".json"] = true
		doc := models.CategoryDocument{
			Category:    g.name,
			Terms:       g.terms,
			LastUpdated: stamp,
		}
		if err := w.files.WriteJSON(g.slug+".json", doc, w.pretty); err != nil {
			return nil, fmt.Errorf("failed to write category %q: %w", g.name, err)
		}

		names := make([]string, len(g.terms))
		for i, t := range g.terms {
			names[i] = t.Term
		}
		index.TermsBySlug[g.slug] = names
		index.Categories = append(index.Categories, models.CategoryIndexEntry{
			Category: g.name,
			Slug:     g.slug,
			Count:    len(g.terms),
		})
	}

	sort.SliceStable(index.Categories, func(i, j int) bool {
		a, b := index.Categories[i], index.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})

	if err := w.files.WriteJSON(w.indexFile, index, w.pretty); err != nil {
		return nil, fmt.Errorf("failed to write index: %w", err)
	}

	removed, err := w.removeStale(current)
	if err != nil {
		return nil, err
	}

	w.logger.InfoWithFields("Glossary artifacts written", map[string]interface{}{
		"dir":           w.files.Dir(),
		"categories":    len(index.Categories),
		"terms":         index.TotalTerms,
		"stale_removed": removed,
		"files_written": w.files.WrittenCount(),
	})
	return index, nil
}

// removeStale deletes category documents left by earlier runs for categories
// that no longer exist. Only files that decode as a category document are
// touched.
func (w *Writer) removeStale(current map[string]bool) (int, error) {
	files, err := w.files.List(".json")
	if err != nil {
		return 0, fmt.Errorf("failed to list output directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if current[f.Name] {
			continue
		}
		var doc struct {
			Category *string          `json:"category"`
			Terms    *json.RawMessage `json:"terms"`
		}
		if ok, err := w.files.ReadJSON(f.Name, &doc); err != nil || !ok || doc.Category == nil || doc.Terms == nil {
			continue
		}
		if err := w.files.Remove(f.Name); err != nil {
			return removed, err
		}
		w.logger.DebugWithFields("Removed stale category document", map[string]interface{}{
			"file":     f.Name,
			"category": *doc.Category,
		})
		removed++
	}
	return removed, nil
}

// WriteReport stores the crawl summary next to the artifacts
func (w *Writer) WriteReport(summary *models.Summary) error {
	if err := w.files.WriteJSON(w.reportFile, summary, true); err != nil {
		return fmt.Errorf("failed to write crawl report: %w", err)
	}
	return nil
}

// partition groups terms by category name, sorts each group by term and
// assigns unique slugs in category name order
func (w *Writer) partition(terms []models.GlossaryTerm) []categoryGroup {
	byName := make(map[string][]models.GlossaryTerm)
	for _, t := range terms {
		byName[t.Category] = append(byName[t.Category], t)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	used := map[string]string{
		strings.TrimSuffix(w.indexFile, ".json"):  w.indexFile,
		strings.TrimSuffix(w.reportFile, ".json"): w.reportFile,
	}

	groups := make([]categoryGroup, 0, len(names))
	for _, name := range names {
		slug := w.uniqueSlug(name, used)

		group := byName[name]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Term != group[j].Term {
				return group[i].Term < group[j].Term
			}
			return group[i].URL < group[j].URL
		})
		groups = append(groups, categoryGroup{name: name, slug: slug, terms: group})
	}
	return groups
}

func (w *Writer) uniqueSlug(name string, used map[string]string) string {
	base := Slugify(name)
	slug := base
	for n := 2; ; n++ {
		if _, taken := used[slug]; !taken {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}

	if slug != base {
		w.logger.WarnWithFields("Category slug collision", map[string]interface{}{
			"category": name,
			"slug":     base,
			"taken_by": used[base],
			"assigned": slug,
		})
	}
	used[slug] = name
	return slug
}
