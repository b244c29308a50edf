// Package fetch implements the batched enrichment fetchers: three passes
// (content, repo metadata, file history) over the file set the collector
// discovered, each choosing between a per-item REST strategy and a
// batched GraphQL strategy.
package fetch
