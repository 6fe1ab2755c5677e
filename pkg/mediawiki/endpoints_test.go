package mediawiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllPagesParams(t *testing.T) {
	p := AllPagesParams(0, 200, "")
	assert.Equal(t, "query", p.Get("action"))
	assert.Equal(t, "allpages", p.Get("list"))
	assert.Equal(t, "200", p.Get("aplimit"))
	assert.False(t, p.Has("apcontinue"))

	p = AllPagesParams(4, 0, "Zebra")
	assert.Equal(t, "4", p.Get("apnamespace"))
	assert.Equal(t, "500", p.Get("aplimit"), "non-positive limit falls back to the maximum")
	assert.Equal(t, "Zebra", p.Get("apcontinue"))

	assert.Equal(t, "500", AllPagesParams(0, 9000, "").Get("aplimit"))
}

func TestCategoriesAndContentParams(t *testing.T) {
	ids := []int{10, 20, 30}

	c := CategoriesParams(ids)
	assert.Equal(t, "categories", c.Get("prop"))
	assert.Equal(t, "10|20|30", c.Get("pageids"))
	assert.Equal(t, "max", c.Get("cllimit"))

	r := ContentParams(ids)
	assert.Equal(t, "revisions", r.Get("prop"))
	assert.Equal(t, "content", r.Get("rvprop"))
	assert.Equal(t, "main", r.Get("rvslots"))
	assert.Equal(t, "10|20|30", r.Get("pageids"))
}

func TestStripCategoryPrefix(t *testing.T) {
	assert.Equal(t, "Weapons", StripCategoryPrefix("Category:Weapons"))
	assert.Equal(t, "Weapons", StripCategoryPrefix("Weapons"))
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		base, title, want string
	}{
		{"https://wiki.example.org/wiki/", "Bone Dagger", "https://wiki.example.org/wiki/Bone_Dagger"},
		{"https://wiki.example.org/wiki", "Bone Dagger", "https://wiki.example.org/wiki/Bone_Dagger"},
		{"https://wiki.example.org/wiki/", "Cat & Mouse", "https://wiki.example.org/wiki/Cat_&_Mouse"},
		{"https://wiki.example.org/wiki/", "Armor/Set", "https://wiki.example.org/wiki/Armor/Set"},
		{"https://wiki.example.org/wiki/", "What?", "https://wiki.example.org/wiki/What%3F"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, PageURL(tt.base, tt.title))
		})
	}
}

func TestMainContent(t *testing.T) {
	p := Page{Revisions: []Revision{{Slots: map[string]Slot{"main": {Content: "text"}}}}}
	assert.Equal(t, "text", p.MainContent())
	assert.Equal(t, "", Page{}.MainContent())
	assert.Equal(t, "", Page{Revisions: []Revision{{}}}.MainContent())
}
