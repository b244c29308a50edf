package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/logging"
)

// Store wraps the DuckDB connection backing the result store: the
// files table, the progress table, and the repos metadata table.
// It is opened with write-ahead durability; any row visible on read is
// committed, so the process is safe to kill at any point.
type Store struct {
	conn *sql.DB
}

// Open creates (if absent) the parent directory of cfg.DBPath and opens a
// DuckDB connection there, creating the schema if it does not exist yet.
func Open(cfg config.StoreConfig) (*Store, error) {
	dir := filepath.Dir(cfg.DBPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d", cfg.DBPath, threads)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing result store schema: %w", err)
	}
	return s, nil
}

// Conn exposes the underlying *sql.DB for the ad hoc inspect command and
// any caller that needs direct SQL access outside this package's CRUD surface.
func (s *Store) Conn() *sql.DB { return s.conn }

// Close checkpoints the database to flush the write-ahead log before
// closing the connection, matching the durability contract: a checkpoint
// here avoids replaying a large WAL on the next Open.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("store: checkpoint before close failed")
	}
	cancel()
	return s.conn.Close()
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %s: %w", stmt, err)
		}
	}
	return nil
}

// schemaStatements is the create-if-absent schema for the result store.
// No migration machinery is required; this list is the
// single source of truth and is safe to re-run against an existing database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS files (
		owner      TEXT NOT NULL,
		repo       TEXT NOT NULL,
		ref        TEXT NOT NULL,
		path       TEXT NOT NULL,
		sha        TEXT NOT NULL,
		size       BIGINT NOT NULL,
		url        TEXT NOT NULL,
		discovered_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, repo, ref, path)
	)`,
	`CREATE TABLE IF NOT EXISTS progress (
		chunk_lo     BIGINT NOT NULL,
		chunk_hi     BIGINT NOT NULL,
		state        TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chunk_lo, chunk_hi)
	)`,
	`CREATE TABLE IF NOT EXISTS repos (
		owner       TEXT NOT NULL,
		repo        TEXT NOT NULL,
		description TEXT,
		stars       INTEGER,
		forks       INTEGER,
		topics      TEXT,
		license     TEXT,
		language    TEXT,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, repo)
	)`,
}
