package crawler

import (
	"unicode/utf8"

	"wikiglossary/pkg/markup"
	"wikiglossary/pkg/mediawiki"
	"wikiglossary/pkg/models"
)

// Build turns fetched pages into glossary terms, in enumeration order.
// Pages that cannot become a term are counted, never returned as errors.
// The Excluded counter is left at zero; exclusion happens during Enumerate.
func (p *Pipeline) Build(pages []models.PageRecord, cats models.CategoryMap, content models.ContentMap) ([]models.GlossaryTerm, models.Counters) {
	var counters models.Counters
	terms := make([]models.GlossaryTerm, 0, len(pages))

	minLen := p.cfg.Crawl.MinDefinitionLength
	maxRelated := p.cfg.Crawl.MaxRelatedTerms
	if maxRelated <= 0 {
		maxRelated = markup.DefaultMaxRelated
	}

	for _, page := range pages {
		raw, ok := content[page.PageID]
		if !ok {
			counters.MissingContent++
			continue
		}
		if markup.IsRedirect(raw) {
			counters.Redirects++
			continue
		}

		definition := markup.Clean(raw)
		if definition == "" {
			counters.Empty++
			continue
		}
		if utf8.RuneCountInString(definition) < minLen {
			counters.Stubs++
			continue
		}

		category := p.classifier.Classify(cats[page.PageID])
		if p.classifier.IsFallback(category) {
			counters.Uncategorized++
		}

		terms = append(terms, models.GlossaryTerm{
			Term:         page.Title,
			Definition:   definition,
			Category:     category,
			URL:          mediawiki.PageURL(p.cfg.Wiki.PageBaseURL, page.Title),
			RelatedTerms: relatedTerms(raw, page.Title, maxRelated, p.cfg.Wiki.MetaNamespaces),
		})
	}

	p.logger.DebugWithFields("Built glossary terms", map[string]interface{}{
		"pages":     len(pages),
		"terms":     len(terms),
		"redirects": counters.Redirects,
		"stubs":     counters.Stubs,
	})
	return terms, counters
}

// relatedTerms extracts up to limit link targets, leaving out links back to
// the page itself
func relatedTerms(raw, title string, limit int, metaNamespaces []string) []string {
	var related []string
	for _, target := range markup.ExtractRelated(raw, limit+1, metaNamespaces...) {
		if target == title {
			continue
		}
		related = append(related, target)
		if len(related) == limit {
			break
		}
	}
	return related
}
