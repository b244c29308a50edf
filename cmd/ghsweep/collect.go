package main

import (
	"context"
	"fmt"

	"github.com/ghsweep/ghsweep/internal/collector"
	"github.com/ghsweep/ghsweep/internal/logging"
)

// collectorPass adapts a Collector's single-query scan into a fetch.Pass so
// it can run under the same suture supervisor as the enrichment passes. A
// restart resumes from the persisted cursor, redoing at most the one chunk
// in flight when the prior attempt failed.
type collectorPass struct {
	c     *collector.Collector
	query string
}

func (p collectorPass) Run(ctx context.Context) error { return p.c.Run(ctx, p.query) }

// collectPaths runs the size-sharded scan to exhaustion against the given
// query, under suture supervision: a Transient error restarts the scan from
// its persisted cursor, while only a Configuration or Irreducible error
// (saturation at minimum chunk width) reaches this invocation's caller and
// produces a non-zero exit.
func (a *app) collectPaths(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("collect-paths requires a QUERY argument")
	}
	query := args[0]

	c := collector.New(a.client, a.store, a.cursor, a.cfg.Scan)

	logging.Ctx(ctx).Info().Str("query", query).Msg("collect-paths: scan starting")
	return runSupervised(ctx, "collect-paths", collectorPass{c: c, query: query})
}
