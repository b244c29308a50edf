package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ghsweep/ghsweep/internal/logging"
)

// Cache is the on-disk, content-addressed persistent response cache.
// It is safe for concurrent use by multiple goroutines and multiple
// processes sharing the same root directory: entry writes are atomic
// (write-to-temp-then-rename), so a reader never observes a partially
// written entry, and two concurrent writers of the same key simply leave
// one survivor, which is acceptable since both would write equivalent
// content.
type Cache struct {
	root string
}

// New opens (creating if absent) the cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{root: dir}, nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.root, key+".json")
}

// WrappedEntry is the general-policy storage schema: a full response
// envelope with expiry tracked via CreatedAt.
type WrappedEntry struct {
	Status    int             `json:"status"`
	Body      json.RawMessage `json:"body"`
	ETag      string          `json:"entity_tag,omitempty"`
	Link      string          `json:"link,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// onDisk is the bare envelope actually written for every key, regardless
// of schema. Schema is a hint only for this package's own readers; the
// file itself is schema-agnostic, consistent with the spec's directive
// that the caller fixes a schema per call site and never mixes it.
type onDisk struct {
	Schema string          `json:"schema"`
	Bare   json.RawMessage `json:"bare,omitempty"`
	Wrapped *WrappedEntry  `json:"wrapped,omitempty"`
}

// GetBare reads a bare-schema entry. skipCache short-circuits to a miss
// without touching disk, per the skip_cache contract — writes still
// happen on the subsequent PutBare so later callers benefit.
func (c *Cache) GetBare(key string, skipCache bool) (json.RawMessage, bool) {
	if skipCache {
		return nil, false
	}
	entry, ok := c.read(key)
	if !ok || entry.Schema != "bare" {
		return nil, false
	}
	return entry.Bare, true
}

// PutBare writes a bare-schema entry. The bare schema never expires:
// once written, an entry is valid until the cache file is removed out of
// band (eviction is an explicit non-goal).
func (c *Cache) PutBare(key string, body json.RawMessage) error {
	return c.write(key, onDisk{Schema: "bare", Bare: body})
}

// GetWrapped reads a wrapped-schema entry, treating it as a miss if it
// has exceeded ttl since it was written.
func (c *Cache) GetWrapped(key string, ttl time.Duration, skipCache bool) (*WrappedEntry, bool) {
	if skipCache {
		return nil, false
	}
	entry, ok := c.read(key)
	if !ok || entry.Schema != "wrapped" || entry.Wrapped == nil {
		return nil, false
	}
	if ttl > 0 && time.Since(entry.Wrapped.CreatedAt) > ttl {
		return nil, false
	}
	return entry.Wrapped, true
}

// PutWrapped writes a wrapped-schema entry. Only successful (2xx)
// responses should be passed here; non-idempotent methods should never
// reach this call at all.
func (c *Cache) PutWrapped(key string, entry WrappedEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return c.write(key, onDisk{Schema: "wrapped", Wrapped: &entry})
}

// read degrades any failure — missing file, concurrent-write race, corrupt
// JSON — silently to a miss. A cache must never fail a caller's request
// just because its own bookkeeping is damaged.
func (c *Cache) read(key string) (onDisk, bool) {
	raw, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return onDisk{}, false
	}
	var entry onDisk
	if err := json.Unmarshal(raw, &entry); err != nil {
		return onDisk{}, false
	}
	return entry, true
}

// write serializes entry to a temp file in the same directory and renames
// it into place, so concurrent readers never see a partial write. Write
// errors are logged, not returned to the caller's request path — a run
// must never fail because caching failed.
func (c *Cache) write(key string, entry onDisk) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: failed to marshal entry")
		return nil
	}

	tmp := filepath.Join(c.root, ".tmp-"+uuid.NewString()+".json")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: failed to write temp entry")
		return nil
	}
	if err := os.Rename(tmp, c.entryPath(key)); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: failed to install entry")
		os.Remove(tmp)
		return nil
	}
	return nil
}
