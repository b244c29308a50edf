package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/ghclient"
	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

const passHistory = "history"

// historyMaxPages bounds how many pages of commit history are fetched per
// file. A file with a truly enormous commit history still yields a
// representative first/last timestamp and author set from this window;
// the commit count recorded reflects what was actually fetched.
const historyMaxPages = 5

// FileHistory is the per-file enrichment record written by the history pass.
type FileHistory struct {
	FirstCommit time.Time `json:"first_commit"`
	LastCommit  time.Time `json:"last_commit"`
	Authors     []string  `json:"authors"`
	CommitCount int       `json:"commit_count"`
}

// HistoryPass extracts, for each file, the first/last commit timestamps,
// the deduplicated author set, and the commit count.
type HistoryPass struct {
	client      *ghclient.Client
	store       *store.Store
	dump        *JSONDump
	batchSize   int
	concurrency int
	strategy    Strategy
}

// NewHistoryPass builds a HistoryPass, opening (or creating) the JSON
// dump at dumpPath.
func NewHistoryPass(client *ghclient.Client, st *store.Store, dumpPath string, fetchCfg config.FetchConfig) (*HistoryPass, error) {
	dump, err := OpenDump(dumpPath)
	if err != nil {
		return nil, fmt.Errorf("opening file history dump: %w", err)
	}
	return &HistoryPass{
		client:      client,
		store:       st,
		dump:        dump,
		batchSize:   fetchCfg.HistoryBatchSize,
		concurrency: fetchCfg.Concurrency,
		strategy:    StrategyFor(fetchCfg.UseGraphQL),
	}, nil
}

// Run sweeps every file record, skipping any already present in the dump.
func (p *HistoryPass) Run(ctx context.Context) error {
	var pending []store.FileRecord
	err := p.store.ListFiles(ctx, func(rec store.FileRecord) error {
		if !p.dump.Has(itemKey(rec)) {
			pending = append(pending, rec)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("history pass: listing files: %w", err)
	}

	logging.Ctx(ctx).Info().Int("pending", len(pending)).Str("strategy", strategyName(p.strategy)).Msg("history pass starting")

	if p.strategy == Batched {
		return p.runBatched(ctx, pending)
	}
	return p.runPerItem(ctx, pending)
}

func (p *HistoryPass) runPerItem(ctx context.Context, pending []store.FileRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	concurrency := p.concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			return p.fetchOne(gctx, rec)
		})
	}
	return g.Wait()
}

type commitEntry struct {
	Commit struct {
		Author struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

func (p *HistoryPass) fetchOne(ctx context.Context, rec store.FileRecord) error {
	path := fmt.Sprintf("/repos/%s/%s/commits", rec.Owner, rec.Repo)

	var entries []commitEntry
	for pageNum := 1; pageNum <= historyMaxPages; pageNum++ {
		resp, err := p.client.Get(ctx, path, map[string]string{
			"path":     rec.Path,
			"sha":      rec.Ref,
			"per_page": "100",
			"page":     strconv.Itoa(pageNum),
		})
		if err != nil {
			return fmt.Errorf("fetching history for %s: %w", itemKey(rec), err)
		}
		if resp.Status >= 400 {
			logging.Ctx(ctx).Warn().Str("item", itemKey(rec)).Int("status", resp.Status).Msg("history pass: permanent error, skipping file")
			metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateSkipped)).Inc()
			return nil
		}

		var page []commitEntry
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return fmt.Errorf("decoding history page for %s: %w", itemKey(rec), err)
		}
		entries = append(entries, page...)
		if len(page) < 100 {
			break
		}
	}

	return p.record(ctx, rec, entries)
}

func (p *HistoryPass) record(ctx context.Context, rec store.FileRecord, entries []commitEntry) error {
	if len(entries) == 0 {
		metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateSkipped)).Inc()
		return nil
	}

	hist := summarizeCommits(entries)
	if err := p.dump.Set(itemKey(rec), hist); err != nil {
		return fmt.Errorf("writing history dump entry for %s: %w", itemKey(rec), err)
	}
	metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateDone)).Inc()
	return nil
}

// summarizeCommits reduces a list of commits (host order: newest first)
// into a FileHistory record.
func summarizeCommits(entries []commitEntry) FileHistory {
	authors := map[string]struct{}{}
	first, last := entries[len(entries)-1].Commit.Author.Date, entries[0].Commit.Author.Date

	for _, e := range entries {
		name := e.Commit.Author.Name
		if e.Author != nil && e.Author.Login != "" {
			name = e.Author.Login
		}
		if name != "" {
			authors[name] = struct{}{}
		}
		if e.Commit.Author.Date.Before(first) {
			first = e.Commit.Author.Date
		}
		if e.Commit.Author.Date.After(last) {
			last = e.Commit.Author.Date
		}
	}

	names := make([]string, 0, len(authors))
	for a := range authors {
		names = append(names, a)
	}

	return FileHistory{
		FirstCommit: first,
		LastCommit:  last,
		Authors:     names,
		CommitCount: len(entries),
	}
}
