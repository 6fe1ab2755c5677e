package artifact

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackSlug is used for names with no ASCII letters or digits
const fallbackSlug = "category"

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a category name into a file-safe slug: accents are folded,
// letters lowercased, and every run of other characters becomes one "-".
//
//	Slugify("Severe Injuries")    // "severe-injuries"
//	Slugify("  Odd--Chars!!  ")   // "odd-chars"
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	slug := nonAlnumRe.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}
