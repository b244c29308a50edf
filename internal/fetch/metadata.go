package fetch

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/ghclient"
	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

const passMetadata = "metadata"

// MetadataPass accumulates a JSON-object-per-repo document keyed by
// "owner/repo". A repo's enrichment fields (stars,
// forks, topics, license, language) change over time, unlike file
// content, so fetches go through the client's general (wrapped, TTL'd)
// cache policy rather than the immutable one.
type MetadataPass struct {
	client      *ghclient.Client
	store       *store.Store
	dump        *JSONDump
	batchSize   int
	concurrency int
	strategy    Strategy
}

// NewMetadataPass builds a MetadataPass, opening (or creating) the JSON
// dump at dumpPath.
func NewMetadataPass(client *ghclient.Client, st *store.Store, dumpPath string, fetchCfg config.FetchConfig) (*MetadataPass, error) {
	dump, err := OpenDump(dumpPath)
	if err != nil {
		return nil, fmt.Errorf("opening repo metadata dump: %w", err)
	}
	return &MetadataPass{
		client:      client,
		store:       st,
		dump:        dump,
		batchSize:   fetchCfg.MetadataBatchSize,
		concurrency: fetchCfg.Concurrency,
		strategy:    StrategyFor(fetchCfg.UseGraphQL),
	}, nil
}

// Run sweeps every distinct (owner, repo) pair referenced by discovered
// files, skipping any already present in the dump, and fetches the rest.
func (p *MetadataPass) Run(ctx context.Context) error {
	repos, err := p.store.ListRepos(ctx)
	if err != nil {
		return fmt.Errorf("metadata pass: listing repos: %w", err)
	}

	var pending []store.RepoKey
	for _, r := range repos {
		if p.dump.Has(repoKey(r)) {
			continue
		}
		// The dump is the primary idempotency signal, but a row present in
		// the durable mirror with no matching dump entry means the dump was
		// lost or truncated since the last run; flag it before refetching.
		if inStore, err := p.store.HasRepoMetadata(ctx, r.Owner, r.Repo); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("repo", repoKey(r)).Msg("metadata pass: checking durable mirror for a corrupted dump")
		} else if inStore {
			logging.Ctx(ctx).Warn().Str("repo", repoKey(r)).Msg("metadata pass: repo present in result store but missing from dump, dump may be corrupted; refetching")
		}
		pending = append(pending, r)
	}

	logging.Ctx(ctx).Info().Int("pending", len(pending)).Str("strategy", strategyName(p.strategy)).Msg("metadata pass starting")

	if p.strategy == Batched {
		return p.runBatched(ctx, pending)
	}
	return p.runPerItem(ctx, pending)
}

func (p *MetadataPass) runPerItem(ctx context.Context, pending []store.RepoKey) error {
	g, gctx := errgroup.WithContext(ctx)
	concurrency := p.concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, repo := range pending {
		repo := repo
		g.Go(func() error {
			return p.fetchOne(gctx, repo)
		})
	}
	return g.Wait()
}

func (p *MetadataPass) fetchOne(ctx context.Context, repo store.RepoKey) error {
	path := fmt.Sprintf("/repos/%s/%s", repo.Owner, repo.Repo)
	resp, err := p.client.Get(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("fetching metadata for %s/%s: %w", repo.Owner, repo.Repo, err)
	}
	if resp.Status >= 400 {
		logging.Ctx(ctx).Warn().Str("repo", repoKey(repo)).Int("status", resp.Status).Msg("metadata pass: permanent error, skipping repo")
		metrics.FetchItemsTotal.WithLabelValues(passMetadata, string(stateSkipped)).Inc()
		return nil
	}

	var decoded struct {
		Description string   `json:"description"`
		Stargazers  int      `json:"stargazers_count"`
		Forks       int      `json:"forks_count"`
		Topics      []string `json:"topics"`
		License     *struct {
			SPDXID string `json:"spdx_id"`
		} `json:"license"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fmt.Errorf("decoding metadata for %s/%s: %w", repo.Owner, repo.Repo, err)
	}

	meta := store.RepoMetadata{
		Owner:       repo.Owner,
		Repo:        repo.Repo,
		Description: decoded.Description,
		Stars:       decoded.Stargazers,
		Forks:       decoded.Forks,
		Topics:      decoded.Topics,
		Language:    decoded.Language,
	}
	if decoded.License != nil {
		meta.License = decoded.License.SPDXID
	}

	return p.record(ctx, repo, meta)
}

func (p *MetadataPass) record(ctx context.Context, repo store.RepoKey, meta store.RepoMetadata) error {
	if err := p.store.UpsertRepoMetadata(ctx, meta); err != nil {
		return fmt.Errorf("upserting repo metadata for %s/%s: %w", repo.Owner, repo.Repo, err)
	}
	if err := p.dump.Set(repoKey(repo), meta); err != nil {
		return fmt.Errorf("writing repo metadata dump entry for %s/%s: %w", repo.Owner, repo.Repo, err)
	}
	metrics.FetchItemsTotal.WithLabelValues(passMetadata, string(stateDone)).Inc()
	return nil
}

func repoKey(r store.RepoKey) string {
	return r.Owner + "/" + r.Repo
}
