// Package markup turns raw MediaWiki markup into glossary text.
//
// Clean strips templates, tables, references, media links and formatting and
// returns plain prose; redirects clean to "". ExtractRelated collects the
// article links a page makes, for use as related terms. Both functions are
// pure and safe for concurrent use.
package markup
