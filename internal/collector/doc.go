// Package collector implements the size-sharded path collector: the
// adaptive linear scan over the byte-size axis that discovers every file
// matching a search query despite the host's 1,000-result-per-query cap.
package collector
