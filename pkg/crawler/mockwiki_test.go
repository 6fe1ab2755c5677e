package crawler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

type mockPage struct {
	title      string
	categories []string
	content    string
}

// mockWiki simulates the parts of a MediaWiki api.php the crawler uses:
// list=allpages with apcontinue, prop=categories with clcontinue, and
// prop=revisions. It can answer the first requests with a throttle error.
type mockWiki struct {
	server *httptest.Server

	mu    sync.RWMutex
	pages map[int]mockPage

	requestCount  int32
	throttleFirst int32
	userAgents    sync.Map
}

func newMockWiki() *mockWiki {
	m := &mockWiki{pages: make(map[int]mockPage)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api.php", m.handle)
	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockWiki) URL() string {
	return m.server.URL + "/api.php"
}

func (m *mockWiki) Close() {
	m.server.Close()
}

func (m *mockWiki) Requests() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

func (m *mockWiki) addPage(id int, title, content string, categories ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[id] = mockPage{title: title, categories: categories, content: content}
}

func (m *mockWiki) handle(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt32(&m.requestCount, 1)
	m.userAgents.Store(r.Header.Get("User-Agent"), true)

	if n <= atomic.LoadInt32(&m.throttleFirst) {
		writeJSON(w, map[string]interface{}{
			"error": map[string]string{"code": "ratelimited", "info": "You've exceeded your rate limit."},
		})
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("list") == "allpages":
		m.handleAllPages(w, q.Get("aplimit"), q.Get("apcontinue"))
	case q.Get("prop") == "categories":
		m.handleCategories(w, parseIDs(q.Get("pageids")), q.Get("clcontinue"))
	case q.Get("prop") == "revisions":
		m.handleRevisions(w, parseIDs(q.Get("pageids")))
	default:
		writeJSON(w, map[string]interface{}{
			"error": map[string]string{"code": "badvalue", "info": "Unrecognized request."},
		})
	}
}

func (m *mockWiki) sortedIDs() []int {
	ids := make([]int, 0, len(m.pages))
	for id := range m.pages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *mockWiki) handleAllPages(w http.ResponseWriter, limitParam, cursor string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit, _ := strconv.Atoi(limitParam)
	offset, _ := strconv.Atoi(cursor)
	ids := m.sortedIDs()
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	var list []map[string]interface{}
	for _, id := range ids[offset:end] {
		list = append(list, map[string]interface{}{"pageid": id, "ns": 0, "title": m.pages[id].title})
	}

	resp := map[string]interface{}{"query": map[string]interface{}{"allpages": list}}
	if end < len(ids) {
		resp["continue"] = map[string]string{"apcontinue": strconv.Itoa(end), "continue": "-||"}
	}
	writeJSON(w, resp)
}

// handleCategories returns the first category of each page, then the rest
// on the clcontinue follow-up
func (m *mockWiki) handleCategories(w http.ResponseWriter, ids []int, cont string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pages []map[string]interface{}
	more := false
	for _, id := range ids {
		page, ok := m.pages[id]
		if !ok {
			continue
		}
		cats := page.categories
		if cont == "" && len(cats) > 1 {
			cats, more = cats[:1], true
		} else if cont != "" && len(cats) > 0 {
			cats = cats[1:]
		}

		var entries []map[string]interface{}
		for _, c := range cats {
			entries = append(entries, map[string]interface{}{"ns": 14, "title": "Category:" + c})
		}
		pages = append(pages, map[string]interface{}{"pageid": id, "ns": 0, "title": page.title, "categories": entries})
	}

	resp := map[string]interface{}{"query": map[string]interface{}{"pages": pages}}
	if more {
		resp["continue"] = map[string]string{"clcontinue": "rest", "continue": "||"}
	}
	writeJSON(w, resp)
}

func (m *mockWiki) handleRevisions(w http.ResponseWriter, ids []int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pages []map[string]interface{}
	for _, id := range ids {
		page, ok := m.pages[id]
		if !ok {
			pages = append(pages, map[string]interface{}{"pageid": id, "missing": true})
			continue
		}
		pages = append(pages, map[string]interface{}{
			"pageid": id,
			"ns":     0,
			"title":  page.title,
			"revisions": []map[string]interface{}{
				{"slots": map[string]interface{}{"main": map[string]string{"contentmodel": "wikitext", "content": page.content}}},
			},
		})
	}
	writeJSON(w, map[string]interface{}{"query": map[string]interface{}{"pages": pages}})
}

func parseIDs(value string) []int {
	var ids []int
	for _, part := range strings.Split(value, "|") {
		if id, err := strconv.Atoi(part); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
