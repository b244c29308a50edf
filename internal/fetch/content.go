package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/ghsweep/ghsweep/internal/apierror"
	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/ghclient"
	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

const passContent = "content"

// ContentPass fetches each file's raw bytes and writes them under
// contentDir/owner/repo/blob/ref/path, backfilling the file record's byte
// size from the same response along the way (the collector's search pass
// never receives one). An item already present on disk is skipped without
// an API call — the filesystem itself is the DONE signal, so a restart
// never re-fetches completed work, but a size recorded on an earlier
// truncated run is not re-verified.
type ContentPass struct {
	client      *ghclient.Client
	store       *store.Store
	contentDir  string
	batchSize   int
	concurrency int
	strategy    Strategy
}

// NewContentPass builds a ContentPass from configuration.
func NewContentPass(client *ghclient.Client, st *store.Store, storeCfg config.StoreConfig, fetchCfg config.FetchConfig) *ContentPass {
	return &ContentPass{
		client:      client,
		store:       st,
		contentDir:  storeCfg.ContentDir,
		batchSize:   fetchCfg.ContentBatchSize,
		concurrency: fetchCfg.Concurrency,
		strategy:    StrategyFor(fetchCfg.UseGraphQL),
	}
}

// contentPath derives the on-disk location for rec, under an
// owner/repo/blob/ref/path layout.
func (p *ContentPass) contentPath(rec store.FileRecord) string {
	return filepath.Join(p.contentDir, rec.Owner, rec.Repo, "blob", rec.Ref, filepath.FromSlash(rec.Path))
}

// Run sweeps every file record in the store, skipping any whose content is
// already on disk, and fetches the rest via the configured strategy.
func (p *ContentPass) Run(ctx context.Context) error {
	var pending []store.FileRecord
	err := p.store.ListFiles(ctx, func(rec store.FileRecord) error {
		if _, statErr := os.Stat(p.contentPath(rec)); statErr == nil {
			return nil
		}
		pending = append(pending, rec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("content pass: listing files: %w", err)
	}

	logging.Ctx(ctx).Info().Int("pending", len(pending)).Str("strategy", strategyName(p.strategy)).Msg("content pass starting")

	if p.strategy == Batched {
		return p.runBatched(ctx, pending)
	}
	return p.runPerItem(ctx, pending)
}

func (p *ContentPass) runPerItem(ctx context.Context, pending []store.FileRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	concurrency := p.concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			if err := p.fetchOne(gctx, rec); err != nil {
				var perm *apierror.Permanent
				if errors.As(err, &perm) {
					logging.Ctx(gctx).Warn().Str("item", perm.Item).Err(err).Msg("content pass: permanent error, skipping item")
					metrics.FetchItemsTotal.WithLabelValues(passContent, string(stateSkipped)).Inc()
					return nil
				}
				return err
			}
			metrics.FetchItemsTotal.WithLabelValues(passContent, string(stateDone)).Inc()
			return nil
		})
	}
	return g.Wait()
}

// fetchOne fetches one file's content via REST and writes it to disk.
func (p *ContentPass) fetchOne(ctx context.Context, rec store.FileRecord) error {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", rec.Owner, rec.Repo, rec.Path)
	resp, err := p.client.GetImmutable(ctx, path, map[string]string{"ref": rec.Ref})
	if err != nil {
		return fmt.Errorf("fetching content for %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
	}
	if resp.Status == 404 {
		return apierror.NewPermanent(itemKey(rec), fmt.Errorf("blob not found at this ref"))
	}
	if resp.Status >= 400 {
		return apierror.NewPermanent(itemKey(rec), fmt.Errorf("host returned status %d", resp.Status))
	}

	var decoded struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		Size     int64  `json:"size"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fmt.Errorf("decoding content response for %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
	}

	raw := []byte(decoded.Content)
	if decoded.Encoding == "base64" {
		decodedBytes, err := base64.StdEncoding.DecodeString(stripNewlines(decoded.Content))
		if err != nil {
			return fmt.Errorf("base64-decoding content for %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
		}
		raw = decodedBytes
	}

	if err := p.writeContent(rec, raw); err != nil {
		return err
	}
	if err := p.store.UpdateFileSize(ctx, rec.Owner, rec.Repo, rec.Ref, rec.Path, decoded.Size); err != nil {
		return fmt.Errorf("recording file size for %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
	}
	return nil
}

func (p *ContentPass) writeContent(rec store.FileRecord, raw []byte) error {
	dest := p.contentPath(rec)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating content directory for %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
	}
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return fmt.Errorf("writing content for %s/%s/%s: %w", rec.Owner, rec.Repo, rec.Path, err)
	}
	return nil
}

func itemKey(rec store.FileRecord) string {
	return rec.Owner + "/" + rec.Repo + "/" + rec.Ref + "/" + rec.Path
}

func strategyName(s Strategy) string {
	if s == Batched {
		return "graphql"
	}
	return "rest"
}

func stripNewlines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' && s[i] != '\r' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
