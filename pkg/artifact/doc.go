// Package artifact writes the glossary dataset consumed by the front end.
//
// For every non-empty category the Writer emits <slug>.json holding the
// category's terms sorted by name, then index.json listing the categories
// by size and the term names per slug. All files are replaced atomically
// through pkg/storage, so a reader sees either the previous or the new
// version of each file.
package artifact
