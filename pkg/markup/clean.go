package markup

import (
	"regexp"
	"strings"
)

// maxPasses bounds every repeat-until-stable loop in Clean
const maxPasses = 100

// HTML and extension tags that appear in page markup. Anything else between
// angle brackets is prose.
const tagNames = `a|abbr|b|big|blockquote|br|caption|center|cite|code|dd|del|div|dl|dt|em|font|` +
	`gallery|h[1-6]|hr|i|img|includeonly|infobox|ins|kbd|li|mainpage-[\w-]+|mark|math|noinclude|` +
	`nowiki|ol|onlyinclude|p|poem|pre|q|references|s|section|small|source|span|strike|strong|` +
	`sub|sup|syntaxhighlight|tabber|table|tbody|td|th|thead|tr|tt|u|ul|var`

var (
	redirectRe = regexp.MustCompile(`(?i)^\s*#REDIRECT`)

	templateParamRe     = regexp.MustCompile(`\{\{\{[^{}]*\}\}\}`)
	innermostTemplateRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	innermostTableRe    = regexp.MustCompile(`(?s)\{\|(?:[^{]|\{[^|])*?\|\}`)

	commentRe        = regexp.MustCompile(`(?s)<!--.*?-->`)
	selfClosingRefRe = regexp.MustCompile(`(?is)<ref(?:\s[^>]*)?/>`)
	refRe            = regexp.MustCompile(`(?is)<ref(?:\s[^>]*)?>.*?</ref\s*>`)
	lineBreakTagRe   = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe            = regexp.MustCompile(`(?i)<(?:/(?:` + tagNames + `)\s*|(?:` + tagNames + `)(?:\s+[a-z][\w:-]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>]+))*\s*/?)>`)

	mediaLinkStartRe = regexp.MustCompile(`(?i)\[\[\s*(?:file|image|category)\s*:`)
	pipedLinkRe      = regexp.MustCompile(`\[\[([^\[\]|]*)\|([^\[\]]*)\]\]`)
	plainLinkRe      = regexp.MustCompile(`\[\[([^\[\]|]*)\]\]`)

	labelledExternalRe = regexp.MustCompile(`\[(?:https?:)?//[^\s\]]+\s+([^\]]*)\]`)
	bareExternalRe     = regexp.MustCompile(`\[(?:https?:)?//[^\s\]]+\]`)

	quoteRunRe   = regexp.MustCompile(`'{2,}`)
	headingRe    = regexp.MustCompile(`(?m)^[ \t]*={1,6}[ \t]*([^=\s].*?)[ \t]*={1,6}[ \t]*$`)
	bareEqualsRe = regexp.MustCompile(`(?m)^[ \t]*=[= \t]*$`)
	listMarkerRe = regexp.MustCompile(`(?m)^[ \t]*(?:[*#:;][ \t]*)+`)
	categoryRe   = regexp.MustCompile(`(?m)^[ \t]*Category:.*$`)
	magicWordRe  = regexp.MustCompile(`__[A-Z]+__`)
	residueRe    = regexp.MustCompile(`\{\{|\}\}|\[\[|\]\]`)

	horizontalSpaceRe = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	lineEdgeSpaceRe   = regexp.MustCompile(`(?m)^ +| +$`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
)

// IsRedirect reports whether raw is a redirect page
func IsRedirect(raw string) bool {
	return redirectRe.MatchString(raw)
}

// Clean converts raw wiki markup into plain prose. Redirects yield "".
// The result is stable: cleaning it again returns it unchanged.
func Clean(raw string) string {
	if IsRedirect(raw) {
		return ""
	}
	return untilStable(strings.ReplaceAll(raw, "\r\n", "\n"), cleanPass)
}

func cleanPass(text string) string {
	if IsRedirect(text) {
		return ""
	}

	text = untilStable(text, func(s string) string {
		s = templateParamRe.ReplaceAllString(s, "")
		return innermostTemplateRe.ReplaceAllString(s, "")
	})
	text = untilStable(text, func(s string) string {
		return innermostTableRe.ReplaceAllString(s, "")
	})

	text = commentRe.ReplaceAllString(text, "")
	text = selfClosingRefRe.ReplaceAllString(text, "")
	text = refRe.ReplaceAllString(text, "")
	text = lineBreakTagRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, "")

	text = removeMediaLinks(text)
	text = pipedLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := pipedLinkRe.FindStringSubmatch(m)
		if strings.TrimSpace(parts[2]) == "" {
			return linkText(parts[1])
		}
		return parts[2]
	})
	text = plainLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		return linkText(plainLinkRe.FindStringSubmatch(m)[1])
	})

	text = labelledExternalRe.ReplaceAllString(text, "$1")
	text = bareExternalRe.ReplaceAllString(text, "")

	text = quoteRunRe.ReplaceAllString(text, "")
	text = magicWordRe.ReplaceAllString(text, "")

	text = headingRe.ReplaceAllStringFunc(text, func(m string) string {
		heading := strings.TrimSpace(headingRe.FindStringSubmatch(m)[1])
		if strings.ContainsAny(heading[len(heading)-1:], ".!?:;") {
			return heading
		}
		return heading + "."
	})
	text = bareEqualsRe.ReplaceAllString(text, "")

	text = listMarkerRe.ReplaceAllString(text, "")
	text = categoryRe.ReplaceAllString(text, "")

	// Unbalanced markup can leave bracket or quote pairs behind, and removing
	// one pair can bring two single characters together.
	text = untilStable(text, func(s string) string {
		s = tagRe.ReplaceAllString(s, "")
		s = residueRe.ReplaceAllString(s, "")
		return quoteRunRe.ReplaceAllString(s, "")
	})

	return normalizeWhitespace(text)
}

func untilStable(text string, pass func(string) string) string {
	for i := 0; i < maxPasses; i++ {
		next := pass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// removeMediaLinks drops [[File:...]], [[Image:...]] and [[Category:...]]
// links, including captions that contain nested links.
func removeMediaLinks(text string) string {
	for i := 0; i < maxPasses; i++ {
		loc := mediaLinkStartRe.FindStringIndex(text)
		if loc == nil {
			return text
		}
		end := matchingClose(text, loc[0])
		if end < 0 {
			// Unterminated; drop the opener and let residue cleanup handle the rest
			text = text[:loc[0]] + text[loc[1]:]
			continue
		}
		text = text[:loc[0]] + text[end:]
	}
	return text
}

// matchingClose returns the index just past the "]]" that closes the "[["
// at start, or -1.
func matchingClose(text string, start int) int {
	depth := 0
	for i := start; i < len(text)-1; i++ {
		switch {
		case text[i] == '[' && text[i+1] == '[':
			depth++
			i++
		case text[i] == ']' && text[i+1] == ']':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func linkText(target string) string {
	return strings.TrimPrefix(strings.TrimSpace(target), ":")
}

func normalizeWhitespace(text string) string {
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = lineEdgeSpaceRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
