package store

import (
	"context"
	"fmt"
)

// FileRecord is a discovered file, uniquely identified by (Owner, Repo,
// Ref, Path). The collector creates the row exactly once; Size starts at
// 0 because the search endpoint that discovers the row never reports a
// file's byte size, and is backfilled once by whichever enrichment pass
// fetches the file's content and learns its size from that response.
type FileRecord struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
	SHA   string
	Size  int64
	URL   string
}

// RepoKey identifies a repository as a projection of the files it contains.
type RepoKey struct {
	Owner string
	Repo  string
}

// InsertFile writes rec, absorbing a duplicate (owner, repo, ref, path)
// silently via DuckDB's ON CONFLICT DO NOTHING. It reports whether the row
// was newly inserted so callers can distinguish a fresh discovery from a
// replay, without treating the duplicate as an error either way.
func (s *Store) InsertFile(ctx context.Context, rec FileRecord) (inserted bool, err error) {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO files (owner, repo, ref, path, sha, size, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, repo, ref, path) DO NOTHING
	`, rec.Owner, rec.Repo, rec.Ref, rec.Path, rec.SHA, rec.Size, rec.URL)
	if err != nil {
		return false, fmt.Errorf("inserting file record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// DuckDB's driver reliably reports affected rows for INSERT; a
		// failure here is not worth surfacing to the collector's hot loop.
		return false, nil
	}
	return n > 0, nil
}

// UpdateFileSize backfills the byte size for one previously discovered
// file, identified by its (owner, repo, ref, path) key. Called by the
// content pass once it has fetched the file and learned its size, since
// the collector's own search pass never receives one.
func (s *Store) UpdateFileSize(ctx context.Context, owner, repo, ref, path string, size int64) error {
	_, err := s.conn.ExecContext(ctx, `
		UPDATE files SET size = ? WHERE owner = ? AND repo = ? AND ref = ? AND path = ?
	`, size, owner, repo, ref, path)
	if err != nil {
		return fmt.Errorf("updating file size for %s/%s/%s: %w", owner, repo, path, err)
	}
	return nil
}

// CountFiles returns the total number of file records currently stored.
func (s *Store) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return n, nil
}

// ListFiles streams every file record to fn in unspecified order. Used by
// the content and history enrichment passes, for which per-item order is
// explicitly not a correctness concern.
func (s *Store) ListFiles(ctx context.Context, fn func(FileRecord) error) error {
	rows, err := s.conn.QueryContext(ctx, `SELECT owner, repo, ref, path, sha, size, url FROM files`)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.Owner, &rec.Repo, &rec.Ref, &rec.Path, &rec.SHA, &rec.Size, &rec.URL); err != nil {
			return fmt.Errorf("scanning file record: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListRepos returns the distinct (owner, repo) pairs referenced by stored
// files — the projection RepoRecord is built from.
func (s *Store) ListRepos(ctx context.Context) ([]RepoKey, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT owner, repo FROM files ORDER BY owner, repo`)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer rows.Close()

	var out []RepoKey
	for rows.Next() {
		var k RepoKey
		if err := rows.Scan(&k.Owner, &k.Repo); err != nil {
			return nil, fmt.Errorf("scanning repo key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
