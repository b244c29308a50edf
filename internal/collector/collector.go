package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghsweep/ghsweep/internal/apierror"
	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/ghclient"
	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

// Collector drives the size-sharded scan: it issues search requests
// through the rate-limited client, writes discovered records into the
// result store, and persists its scan cursor after each chunk so restart
// resumes without redoing completed ranges.
type Collector struct {
	client *ghclient.Client
	store  *store.Store
	cursor *store.Cursor
	cfg    config.ScanConfig
}

// New builds a Collector from its dependencies.
func New(client *ghclient.Client, st *store.Store, cursor *store.Cursor, cfg config.ScanConfig) *Collector {
	return &Collector{client: client, store: st, cursor: cursor, cfg: cfg}
}

// Run scans query over the full [0, MaxSize) byte-size axis, persisting
// every discovered file into the result store. It resumes from a prior
// cursor position if one exists for this exact query string. A saturated
// chunk at minimum width aborts the run with an Irreducible error; all
// progress made before that point remains durable.
//
// The scan is strictly sequential: the cursor for chunk N+1 is persisted
// only after chunk N's records are committed to the store. Interleaved
// chunks could otherwise leave gaps in coverage.
func (c *Collector) Run(ctx context.Context, query string) error {
	lo, width := int64(0), c.cfg.InitialWidth
	if pos, found, err := c.cursor.Load(query); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("collector: failed to load cursor, starting from 0")
	} else if found {
		lo, width = pos.Lo, pos.Width
		logging.Ctx(ctx).Info().Int64("lo", lo).Int64("width", width).Msg("collector: resuming from persisted cursor")
	}

	for lo < c.cfg.MaxSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		hi := clampHi(lo, width, c.cfg.MaxSize)

		count, err := c.scanOneChunk(ctx, query, lo, hi)
		if err != nil {
			return err
		}

		nextLo, nextWidth, state, err := adapt(c.cfg, lo, width, count)
		if err != nil {
			var irr *apierror.Irreducible
			if errors.As(err, &irr) {
				logging.Ctx(ctx).Error().Int64("size", irr.Size).Msg("collector: irreducible saturation, aborting scan")
			}
			return err
		}

		if err := c.store.RecordProgress(ctx, lo, hi, state, count); err != nil {
			return fmt.Errorf("recording progress for [%d, %d): %w", lo, hi, err)
		}
		if err := c.cursor.Save(query, store.CursorPosition{Lo: nextLo, Width: nextWidth}); err != nil {
			return fmt.Errorf("saving cursor after [%d, %d): %w", lo, hi, err)
		}

		metrics.ChunksProcessed.WithLabelValues(string(state)).Inc()
		logging.Ctx(ctx).Debug().
			Int64("lo", lo).Int64("hi", hi).Int("count", count).
			Str("state", string(state)).Int64("next_lo", nextLo).Int64("next_width", nextWidth).
			Msg("collector: chunk processed")

		lo, width = nextLo, nextWidth
	}

	logging.Ctx(ctx).Info().Str("query", query).Msg("collector: scan complete")
	return nil
}

// scanOneChunk issues the query for [lo, hi), inserting every discovered
// row into the result store as soon as its page arrives. A zero-result
// chunk is valid and simply inserts nothing.
func (c *Collector) scanOneChunk(ctx context.Context, query string, lo, hi int64) (int, error) {
	var insertErr error
	count, err := searchChunk(ctx, c.client, query, lo, hi, func(item searchItem) {
		if insertErr != nil {
			return
		}
		rec := store.FileRecord{
			Owner: item.Repository.Owner.Login,
			Repo:  item.Repository.Name,
			Ref:   refaultRef,
			Path:  item.Path,
			SHA:   item.SHA,
			URL:   item.URL,
		}
		if _, err := c.store.InsertFile(ctx, rec); err != nil {
			insertErr = fmt.Errorf("inserting discovered file %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
			return
		}
		metrics.RecordsDiscovered.Inc()
	})
	if err != nil {
		return 0, err
	}
	if insertErr != nil {
		return 0, insertErr
	}
	return count, nil
}
