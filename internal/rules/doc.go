// Package rules holds the pure gating rules of the learning engine: the
// topic completion predicate, level completion, the level unlock rule and
// the derived progress percentage.
//
// Nothing here performs I/O or logs. Callers pass in a last-known-good
// course tree and enrollment snapshot and get a plain answer back.
package rules
