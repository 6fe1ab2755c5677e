package models

import "time"

type PageRecord struct {
	PageID int    `json:"pageId"`
	Title  string `json:"title"`
}

// CategoryMap holds raw category names per page, without the "Category:"
// prefix. Every enumerated page has an entry, possibly empty.
type CategoryMap map[int][]string

// ContentMap holds raw wiki markup per page. An empty string means the page
// had no main-slot content.
type ContentMap map[int]string

type GlossaryTerm struct {
	Term         string   `json:"term"`
	Definition   string   `json:"definition"`
	Category     string   `json:"category"`
	URL          string   `json:"url"`
	RelatedTerms []string `json:"relatedTerms,omitempty"`
}

type CategoryIndexEntry struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
	Count    int    `json:"count"`
}

type Index struct {
	Categories  []CategoryIndexEntry `json:"categories"`
	TermsBySlug map[string][]string  `json:"termsBySlug"`
	TotalTerms  int                  `json:"totalTerms"`
	LastUpdated string               `json:"lastUpdated"`
}

type CategoryDocument struct {
	Category    string         `json:"category"`
	Terms       []GlossaryTerm `json:"terms"`
	LastUpdated string         `json:"lastUpdated"`
}

// Counters tracks per-item outcomes that are recorded rather than failed
type Counters struct {
	Redirects      int `json:"redirects"`
	Stubs          int `json:"stubs"`
	Empty          int `json:"empty"`
	MissingContent int `json:"missing_content"`
	Uncategorized  int `json:"uncategorized"`
	Excluded       int `json:"excluded"`
}

// StageTiming records how one pipeline stage ran
type StageTiming struct {
	Stage    string        `json:"stage"`
	Resumed  bool          `json:"resumed"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration_ns"`
}

// Summary is the operator-facing report of one crawl run
type Summary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Pages      int           `json:"pages"`
	Terms      int           `json:"terms"`
	Categories int           `json:"categories"`
	Counters   Counters      `json:"counters"`
	Stages     []StageTiming `json:"stages"`
}
