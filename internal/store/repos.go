package store

import (
	"context"
	"fmt"
	"strings"
)

// RepoMetadata carries the enrichment fields the metadata pass populates,
// the metadata pass produces. The canonical output is the repo_metadata.json
// sidecar dump; this table is an optional durable mirror, useful for the
// ghsweep stats/inspect commands without re-parsing the JSON dump.
type RepoMetadata struct {
	Owner       string
	Repo        string
	Description string
	Stars       int
	Forks       int
	Topics      []string
	License     string
	Language    string
}

// UpsertRepoMetadata writes or replaces the enrichment row for one repo.
func (s *Store) UpsertRepoMetadata(ctx context.Context, m RepoMetadata) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO repos (owner, repo, description, stars, forks, topics, license, language, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (owner, repo) DO UPDATE SET
			description = EXCLUDED.description,
			stars       = EXCLUDED.stars,
			forks       = EXCLUDED.forks,
			topics      = EXCLUDED.topics,
			license     = EXCLUDED.license,
			language    = EXCLUDED.language,
			updated_at  = CURRENT_TIMESTAMP
	`, m.Owner, m.Repo, m.Description, m.Stars, m.Forks, strings.Join(m.Topics, ","), m.License, m.Language)
	if err != nil {
		return fmt.Errorf("upserting repo metadata for %s/%s: %w", m.Owner, m.Repo, err)
	}
	return nil
}

// HasRepoMetadata reports whether a metadata row already exists for
// owner/repo. The metadata pass's primary skip signal is its JSON dump;
// this is the cross-check for a repo present in the durable mirror but
// absent from the dump, which would otherwise mean silently losing track
// of a dump that was truncated or lost since the last run.
func (s *Store) HasRepoMetadata(ctx context.Context, owner, repo string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM repos WHERE owner = ? AND repo = ?`, owner, repo).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking repo metadata for %s/%s: %w", owner, repo, err)
	}
	return n > 0, nil
}
