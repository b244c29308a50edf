package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/ghsweep/ghsweep/internal/config"
)

// cursorKeyPrefix prefixes the Badger key each query's scan cursor lives
// under. One query's scan owns one cursor; running a different query
// against the same cursor directory starts that query's own scan from 0
// because the key embeds the query string.
const cursorKeyPrefix = "cursor:"

// Cursor persists the collector's (lo, width) scan position in a
// dedicated key-value slot, separate from the progress table, so the very
// frequent per-chunk cursor write, persisted after each successful chunk,
// never contends with DuckDB's WAL checkpoint cadence.
type Cursor struct {
	db *badger.DB
}

// CursorPosition is the resumable scan state for one query.
type CursorPosition struct {
	Lo    int64 `json:"lo"`
	Width int64 `json:"width"`
}

// OpenCursor opens (creating if absent) the Badger database backing the
// scan cursor.
func OpenCursor(cfg config.CursorConfig) (*Cursor, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cursor store: %w", err)
	}
	return &Cursor{db: db}, nil
}

// Close closes the underlying Badger database.
func (c *Cursor) Close() error { return c.db.Close() }

// Load returns the persisted position for query, and false if the scan
// has never progressed (a fresh scan should start at lo=0).
func (c *Cursor) Load(query string) (CursorPosition, bool, error) {
	var pos CursorPosition
	var found bool
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cursorKeyPrefix + query))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if err != nil {
		return CursorPosition{}, false, fmt.Errorf("loading cursor for query %q: %w", query, err)
	}
	return pos, found, nil
}

// Save persists pos for query. Called once per completed chunk, per
// the strict-sequential ordering the collector relies on: the caller
// must not begin the next chunk until this returns.
func (c *Cursor) Save(query string, pos CursorPosition) error {
	raw, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshaling cursor position: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cursorKeyPrefix+query), raw)
	})
	if err != nil {
		return fmt.Errorf("saving cursor for query %q: %w", query, err)
	}
	return nil
}
