package fetch

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// JSONDump is an object-per-key sidecar output file (repo_metadata.json,
// file_history.json): a flat JSON object keyed by the pass's own item
// identifier (owner/repo for metadata, owner/repo/ref/path for history).
// The presence of a key is the idempotency signal the state machine in
// an enrichment pass relies on: a DONE item's entry is authoritative on restart.
//
// Writes are atomic at the whole-file granularity (write-to-temp-then-
// rename), mirroring the response cache's own write discipline, so a process killed
// mid-write never corrupts the dump — the reader sees either the old
// complete file or the new one, never a partial one.
type JSONDump struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// OpenDump loads the dump at path if it exists, or starts an empty one.
// A corrupt or missing file degrades to an empty dump rather than failing
// the pass — enrichment output is best-effort and resumable by nature.
func OpenDump(path string) (*JSONDump, error) {
	d := &JSONDump{path: path, data: map[string]json.RawMessage{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, nil
	}
	_ = json.Unmarshal(raw, &d.data)
	return d, nil
}

// Has reports whether key already has an entry, letting a pass skip
// re-fetching an item whose output is already durable.
func (d *JSONDump) Has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.data[key]
	return ok
}

// Set records value under key and flushes the whole dump to disk. Flushing
// on every write (rather than batching) keeps the on-disk file always
// consistent with what has actually been fetched, at the cost of a full
// rewrite per item — acceptable given enrichment passes are I/O-bound on
// the network call, not the local disk write.
func (d *JSONDump) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[key] = raw
	return d.flushLocked()
}

// Len reports how many entries the dump currently holds.
func (d *JSONDump) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}

func (d *JSONDump) flushLocked() error {
	raw, err := json.MarshalIndent(d.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString()+".json")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
