package markup

import (
	"regexp"
	"strings"
)

// DefaultMaxRelated is the default cap on related terms per page
const DefaultMaxRelated = 20

var wikiLinkRe = regexp.MustCompile(`\[\[([^\[\]|#]*)(?:#[^\[\]|]*)?(?:\|[^\[\]]*)?\]\]`)

// Namespaces whose links never count as related terms. Any "<ns> talk"
// namespace is excluded as well, and so is any namespace named "... Wiki",
// which is how wiki farms name the project namespace.
var excludedNamespaces = map[string]bool{
	"file":         true,
	"image":        true,
	"media":        true,
	"category":     true,
	"template":     true,
	"user":         true,
	"talk":         true,
	"mediawiki":    true,
	"special":      true,
	"help":         true,
	"module":       true,
	"project":      true,
	"forum":        true,
	"message wall": true,
	"user blog":    true,
	"board":        true,
}

// Interwiki prefixes point at other sites
var interwikiPrefixes = map[string]bool{
	"w":          true,
	"c":          true,
	"wikia":      true,
	"fandom":     true,
	"wikipedia":  true,
	"wiktionary": true,
	"commons":    true,
	"meta":       true,
	"mw":         true,
	"wp":         true,
}

// ExtractRelated returns the distinct article link targets in raw, in order
// of first appearance, capped at limit. A non-positive limit yields nil.
// Links into metaNamespaces are skipped along with the built-in
// administrative and interwiki prefixes.
func ExtractRelated(raw string, limit int, metaNamespaces ...string) []string {
	if limit <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var related []string

	for _, m := range wikiLinkRe.FindAllStringSubmatch(raw, -1) {
		target := normalizeTarget(m[1])
		if target == "" || IsMetaLink(target, metaNamespaces...) || seen[target] {
			continue
		}
		seen[target] = true
		related = append(related, target)
		if len(related) == limit {
			break
		}
	}
	return related
}

// IsMetaLink reports whether target points outside the article namespace:
// an administrative or project namespace, one of metaNamespaces, or another
// wiki.
func IsMetaLink(target string, metaNamespaces ...string) bool {
	idx := strings.Index(target, ":")
	if idx <= 0 {
		return false
	}
	ns := strings.ToLower(strings.Join(strings.Fields(target[:idx]), " "))
	if ns == "" {
		return false
	}
	if excludedNamespaces[ns] || interwikiPrefixes[ns] {
		return true
	}
	if strings.HasSuffix(ns, " talk") || ns == "wiki" || strings.HasSuffix(ns, " wiki") {
		return true
	}
	for _, meta := range metaNamespaces {
		if strings.EqualFold(strings.Join(strings.Fields(meta), " "), ns) {
			return true
		}
	}
	return false
}

func normalizeTarget(target string) string {
	target = strings.TrimSpace(strings.ReplaceAll(target, "_", " "))
	target = strings.TrimSpace(strings.TrimPrefix(target, ":"))
	return strings.Join(strings.Fields(target), " ")
}
