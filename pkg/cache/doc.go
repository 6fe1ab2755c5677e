// Package cache stores the crawl's stage checkpoints.
//
// Each stage of the pipeline materializes its full output into one JSON file
// (pages.json, categories.json, content.json). The content stage also keeps
// an incremental content_partial.json so an interrupted crawl can resume
// where it stopped. Writes are atomic, and the directory is guarded by an
// advisory file lock so two crawls never write the same checkpoints.
package cache
