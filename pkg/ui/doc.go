// Package ui holds the terminal output of the wikiglossary CLI: colored
// status lines, a per-stage progress tracker and optional desktop
// notifications. Messages go to stderr so stdout stays clean for command
// output such as `config show` or `clean`.
package ui
