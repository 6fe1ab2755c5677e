package mediawiki

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// MaxPageIDs is the most page ids one anonymous query may name
	MaxPageIDs = 50

	// MaxListLimit is the largest aplimit accepted for anonymous clients
	MaxListLimit = 500

	categoryPrefix = "Category:"
)

// AllPagesParams builds a list=allpages query
func AllPagesParams(namespace, limit int, cursor string) url.Values {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "allpages")
	params.Set("apnamespace", strconv.Itoa(namespace))
	params.Set("aplimit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("apcontinue", cursor)
	}
	return params
}

// CategoriesParams builds a prop=categories query for ids
func CategoriesParams(ids []int) url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "categories")
	params.Set("pageids", JoinIDs(ids))
	params.Set("cllimit", "max")
	return params
}

// ContentParams builds a prop=revisions query returning main-slot content
func ContentParams(ids []int) url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("pageids", JoinIDs(ids))
	return params
}

// JoinIDs formats page ids the way the API expects multi-value params
func JoinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, "|")
}

// StripCategoryPrefix turns "Category:Weapons" into "Weapons"
func StripCategoryPrefix(title string) string {
	return strings.TrimPrefix(title, categoryPrefix)
}

// PageURL builds the canonical article URL for title under base.
// Spaces become underscores and each path segment is escaped.
func PageURL(base, title string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	segments := strings.Split(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + strings.Join(segments, "/")
}
