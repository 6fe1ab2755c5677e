// Package classify maps raw wiki categories onto glossary output categories
// using an ordered list of regular expression rules.
package classify
