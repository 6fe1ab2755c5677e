// Package crawler runs the glossary crawl.
//
// A Pipeline executes five stages in order:
//
//  1. pages: enumerate the namespace, dropping excluded titles
//  2. categories: fetch raw categories per page in batches
//  3. content: fetch raw markup per page in batches, with a partial
//     checkpoint that later runs resume from
//  4. build: clean markup, classify, and extract related terms
//  5. write: emit the category documents, index and crawl report
//
// The first three stages each finish by writing a checkpoint to the cache
// store, and a stage whose checkpoint already exists is skipped without any
// network access. Batches are fetched through internal/fetchpool; every
// worker goes through the same client and therefore the same rate limiter.
package crawler
