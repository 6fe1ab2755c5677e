package mediawiki

import "wikiglossary/pkg/models"

// APIError is the MediaWiki error envelope body
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Response is a formatversion=2 action=query response. Only the fields the
// crawler reads are decoded.
type Response struct {
	Error    *APIError         `json:"error,omitempty"`
	Continue map[string]string `json:"continue,omitempty"`
	Query    Query             `json:"query"`
}

type Query struct {
	AllPages []Page `json:"allpages,omitempty"`
	Pages    []Page `json:"pages,omitempty"`
}

type Page struct {
	PageID     int        `json:"pageid"`
	NS         int        `json:"ns"`
	Title      string     `json:"title"`
	Missing    bool       `json:"missing,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Revisions  []Revision `json:"revisions,omitempty"`
}

type Category struct {
	NS    int    `json:"ns"`
	Title string `json:"title"`
}

type Revision struct {
	Slots map[string]Slot `json:"slots"`
}

type Slot struct {
	ContentModel string `json:"contentmodel,omitempty"`
	Content      string `json:"content"`
}

// PageList is one page of list=allpages results
type PageList struct {
	Pages []models.PageRecord
	// Cursor is the apcontinue value for the next call, empty when done
	Cursor string
}

// MainContent returns the main-slot content of the first revision, or ""
func (p Page) MainContent() string {
	if len(p.Revisions) == 0 {
		return ""
	}
	return p.Revisions[0].Slots["main"].Content
}
