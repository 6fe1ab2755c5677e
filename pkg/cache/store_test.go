package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func TestLoadMissingCheckpoint(t *testing.T) {
	s := newTestStore(t)

	var pages []models.PageRecord
	found, err := s.Load(KeyPages, &pages)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, s.Exists(KeyPages))
}

func TestSaveAndLoadPages(t *testing.T) {
	s := newTestStore(t)
	pages := []models.PageRecord{{PageID: 1, Title: "Bone Dagger"}, {PageID: 2, Title: "Lantern"}}

	require.NoError(t, s.Save(KeyPages, pages))
	assert.True(t, s.Exists(KeyPages))

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "pages.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pageId":1`)

	var loaded []models.PageRecord
	found, err := s.Load(KeyPages, &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, pages, loaded)
}

func TestIntegerKeyedMapsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	cats := models.CategoryMap{1: {"Weapons", "Gear"}, 2: {}}

	require.NoError(t, s.Save(KeyCategories, cats))

	var loaded models.CategoryMap
	found, err := s.Load(KeyCategories, &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"Weapons", "Gear"}, loaded[1])
	v, ok := loaded[2]
	assert.True(t, ok, "pages without categories keep an entry")
	assert.Empty(t, v)
}

func TestCorruptCheckpointIsAnError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "content.json"), []byte("{truncated"), 0644))

	var content models.ContentMap
	_, err := s.Load(KeyContent, &content)
	assert.Error(t, err)
}

func TestDeleteClearAndInfo(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(KeyPages, []models.PageRecord{}))
	require.NoError(t, s.Save(KeyContentPartial, models.ContentMap{1: "x"}))

	info := s.Info()
	require.Len(t, info, len(Keys))
	assert.Equal(t, KeyPages, info[0].Key)
	assert.True(t, info[0].Exists)
	assert.False(t, info[1].Exists)
	assert.True(t, info[3].Exists)
	assert.Positive(t, info[3].Size)

	require.NoError(t, s.Delete(KeyPages))
	assert.False(t, s.Exists(KeyPages))
	require.NoError(t, s.Delete(KeyPages), "deleting twice is fine")

	require.NoError(t, s.Clear())
	for _, e := range s.Info() {
		assert.False(t, e.Exists, e.Key)
	}
}

func TestLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir, logger.NewNopLogger())
	require.NoError(t, err)
	second, err := NewStore(dir, logger.NewNopLogger())
	require.NoError(t, err)

	unlock, err := first.Lock(context.Background(), time.Second)
	require.NoError(t, err)

	_, err = second.Lock(context.Background(), 150*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	unlock()

	unlock2, err := second.Lock(context.Background(), time.Second)
	require.NoError(t, err)
	unlock2()
}

func TestLockHonoursContext(t *testing.T) {
	dir := t.TempDir()
	first, _ := NewStore(dir, logger.NewNopLogger())
	second, _ := NewStore(dir, logger.NewNopLogger())

	unlock, err := first.Lock(context.Background(), time.Second)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = second.Lock(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
