package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wikiglossary/pkg/config"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/models"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))

func newTestWriter(t *testing.T, log logger.Logger) *Writer {
	t.Helper()
	cfg := config.DefaultConfig().Output
	cfg.Directory = t.TempDir()

	w, err := NewWriter(&cfg, log)
	require.NoError(t, err)
	w.SetClock(func() time.Time { return fixedTime })
	return w
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func term(name, category string) models.GlossaryTerm {
	return models.GlossaryTerm{
		Term:       name,
		Definition: name + " is a glossary entry used in tests.",
		Category:   category,
		URL:        "https://wiki.example/wiki/" + name,
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Severe Injuries":  "severe-injuries",
		"  Odd--Chars!!  ": "odd-chars",
		"Fighting Arts":    "fighting-arts",
		"Crème Brûlée":     "creme-brulee",
		"Ärmor & Gëar":     "armor-gear",
		"A/B Test 2":       "a-b-test-2",
		"!!!":              "category",
		"":                 "category",
	}

	for name, want := range tests {
		assert.Equal(t, want, Slugify(name), name)
	}
}

func TestWrite(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	terms := []models.GlossaryTerm{
		term("Zebra Padding", "Armor"),
		term("Bone Dagger", "Weapons"),
		term("Founding Stone", "Weapons"),
		term("Amber Edge", "Weapons"),
		term("Cloth", "Armor"),
		term("Timid", "Disorders"),
	}
	terms[0].RelatedTerms = []string{"Cloth"}

	index, err := w.Write(terms)
	require.NoError(t, err)

	assert.Equal(t, 6, index.TotalTerms)
	assert.Equal(t, "2026-03-14T08:26:53Z", index.LastUpdated)
	assert.Equal(t, []models.CategoryIndexEntry{
		{Category: "Weapons", Slug: "weapons", Count: 3},
		{Category: "Armor", Slug: "armor", Count: 2},
		{Category: "Disorders", Slug: "disorders", Count: 1},
	}, index.Categories)
	assert.Equal(t, []string{"Amber Edge", "Bone Dagger", "Founding Stone"}, index.TermsBySlug["weapons"])

	var onDisk models.Index
	readJSON(t, filepath.Join(w.Dir(), "index.json"), &onDisk)
	assert.Equal(t, *index, onDisk)

	var armor models.CategoryDocument
	readJSON(t, filepath.Join(w.Dir(), "armor.json"), &armor)
	assert.Equal(t, "Armor", armor.Category)
	assert.Equal(t, "2026-03-14T08:26:53Z", armor.LastUpdated)
	require.Len(t, armor.Terms, 2)
	assert.Equal(t, "Cloth", armor.Terms[0].Term)
	assert.Equal(t, "Zebra Padding", armor.Terms[1].Term)
	assert.Equal(t, []string{"Cloth"}, armor.Terms[1].RelatedTerms)

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary file left behind")
	}
}

func TestWriteSortsTermsByteWise(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	index, err := w.Write([]models.GlossaryTerm{
		term("bone", "Gear"),
		term("Zed", "Gear"),
		term("Éclair", "Gear"),
		term("Axe", "Gear"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Axe", "Zed", "bone", "Éclair"}, index.TermsBySlug["gear"])
}

func TestWriteTiesSortByCategoryName(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	index, err := w.Write([]models.GlossaryTerm{
		term("One", "Gear"),
		term("Two", "Abilities"),
		term("Three", "Monsters"),
	})
	require.NoError(t, err)

	var order []string
	for _, c := range index.Categories {
		order = append(order, c.Category)
	}
	assert.Equal(t, []string{"Abilities", "Gear", "Monsters"}, order)
}

func TestWriteSlugCollision(t *testing.T) {
	log := logger.NewTestLogger()
	w := newTestWriter(t, log)

	index, err := w.Write([]models.GlossaryTerm{
		term("Axe", "Weapons"),
		term("Sword", "weapons!"),
		term("Spear", "Weapons?"),
	})
	require.NoError(t, err)

	slugs := map[string]string{}
	for _, c := range index.Categories {
		slugs[c.Category] = c.Slug
	}
	assert.Equal(t, "weapons", slugs["Weapons"])
	assert.Equal(t, "weapons-2", slugs["Weapons?"])
	assert.Equal(t, "weapons-3", slugs["weapons!"])

	for _, slug := range []string{"weapons", "weapons-2", "weapons-3"} {
		assert.FileExists(t, filepath.Join(w.Dir(), slug+".json"))
	}
	assert.True(t, log.HasMessage("Category slug collision"))
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
}

func TestWriteNeverOverwritesIndex(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	index, err := w.Write([]models.GlossaryTerm{term("Page", "Index")})
	require.NoError(t, err)
	require.Len(t, index.Categories, 1)
	assert.Equal(t, "index-2", index.Categories[0].Slug)

	var onDisk models.Index
	readJSON(t, filepath.Join(w.Dir(), "index.json"), &onDisk)
	assert.Equal(t, 1, onDisk.TotalTerms)
}

func TestWriteEmpty(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	index, err := w.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, index.TotalTerms)

	data, err := os.ReadFile(filepath.Join(w.Dir(), "index.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"categories":[]`)
	assert.Contains(t, string(data), `"termsBySlug":{}`)
}

func TestWriteOmitsEmptyRelatedTerms(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	_, err := w.Write([]models.GlossaryTerm{term("Axe", "Weapons")})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(w.Dir(), "weapons.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "relatedTerms")
}

func TestWriteRemovesStaleCategoryDocuments(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	_, err := w.Write([]models.GlossaryTerm{term("Axe", "Weapons"), term("Lantern", "Gear")})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(w.Dir(), "gear.json"))

	notes := filepath.Join(w.Dir(), "notes.json")
	require.NoError(t, os.WriteFile(notes, []byte(`{"owner":"ops"}`), 0644))
	require.NoError(t, w.WriteReport(&models.Summary{RunID: "run"}))

	index, err := w.Write([]models.GlossaryTerm{term("Axe", "Weapons")})
	require.NoError(t, err)
	assert.Len(t, index.Categories, 1)

	assert.NoFileExists(t, filepath.Join(w.Dir(), "gear.json"))
	assert.FileExists(t, filepath.Join(w.Dir(), "weapons.json"))
	assert.FileExists(t, filepath.Join(w.Dir(), "index.json"))
	assert.FileExists(t, filepath.Join(w.Dir(), "crawl-report.json"))
	assert.FileExists(t, notes)
}

func TestWriteReport(t *testing.T) {
	w := newTestWriter(t, logger.NewNopLogger())

	summary := &models.Summary{
		RunID:    "01J0000000000000000000TEST",
		Pages:    3,
		Terms:    1,
		Counters: models.Counters{Redirects: 1, Stubs: 1},
	}
	require.NoError(t, w.WriteReport(summary))

	var got models.Summary
	readJSON(t, filepath.Join(w.Dir(), "crawl-report.json"), &got)
	assert.Equal(t, summary.RunID, got.RunID)
	assert.Equal(t, summary.Counters, got.Counters)
}
