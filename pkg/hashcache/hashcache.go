// Package hashcache persists file fingerprints between runs so repeated
// syncs over large trees can skip re-hashing files whose metadata is
// unchanged.
//
// The backing store is a human-readable JSON file mapping resolved absolute
// paths to their last known size, modification time, and content hash.
// Because keys are absolute, moving a tree to a new location invalidates all
// of its entries; that is expected, the affected files are simply re-hashed.
package hashcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quietbyte/dirsync/pkg/fingerprint"
	"github.com/quietbyte/dirsync/pkg/plog"
	"github.com/quietbyte/dirsync/pkg/sharded"
)

// DefaultFileName is the cache file created next to the invocation directory.
const DefaultFileName = ".dirsync-cache.json"

// modTimeTolerance is the window within which a cached modification time is
// considered to match the live file. It absorbs filesystems with coarse
// timestamp resolution.
const modTimeTolerance = int64(time.Second)

// Entry is the persisted shadow of a FileRecord, keyed by absolute path.
type Entry struct {
	Size        int64  `json:"size"`
	ModTime     int64  `json:"mtimeNs"`
	ContentHash string `json:"hash"`
}

// Cache is the in-memory fingerprint cache bound to its backing file.
// Update is safe under a worker pool: entries live in a sharded map and
// concurrent writers to the same key serialize per shard (last writer wins).
type Cache struct {
	path    string
	entries *sharded.Map[Entry]
}

// Load reads the persisted cache at path. A missing, unreadable, or corrupt
// backing file degrades to an empty cache: every file is simply re-hashed,
// the sync result is never affected.
func Load(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: sharded.NewMap[Entry](),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			plog.Warn("Fingerprint cache unreadable, starting empty", "path", path, "error", err)
		}
		return c
	}

	var persisted map[string]Entry
	if err := json.Unmarshal(data, &persisted); err != nil {
		plog.Warn("Fingerprint cache corrupt, starting empty", "path", path, "error", err)
		return c
	}
	for k, v := range persisted {
		c.entries.Store(k, v)
	}
	plog.Debug("Fingerprint cache loaded", "path", path, "entries", len(persisted))
	return c
}

// LookupValid returns the entry for absPath only if it is still valid
// evidence for the live file: the stored size must match exactly and the
// stored modification time must be within one second of the current one.
// A stale entry is reported as absent and left in place to be overwritten
// by the next Update.
func (c *Cache) LookupValid(absPath string, currentSize, currentModTime int64) (Entry, bool) {
	entry, ok := c.entries.Load(absPath)
	if !ok {
		return Entry{}, false
	}
	if entry.Size != currentSize {
		return Entry{}, false
	}
	delta := entry.ModTime - currentModTime
	if delta < 0 {
		delta = -delta
	}
	if delta > modTimeTolerance {
		return Entry{}, false
	}
	return entry, true
}

// Update overwrites (or inserts) the entry for the record's path. The change
// is effective immediately in memory and durable only after Persist.
func (c *Cache) Update(rec fingerprint.FileRecord) {
	c.entries.Store(rec.Path, Entry{
		Size:        rec.Size,
		ModTime:     rec.ModTime,
		ContentHash: rec.ContentHash,
	})
}

// Len returns the number of entries currently held in memory.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Persist writes the full in-memory mapping back to the backing file.
// The write goes to a temporary file first and is renamed into place so a
// crash never leaves a truncated cache. Failure is logged and swallowed:
// losing the cache must never abort or corrupt a sync.
func (c *Cache) Persist() {
	if err := c.persist(); err != nil {
		plog.Warn("Failed to persist fingerprint cache", "path", c.path, "error", err)
	}
}

func (c *Cache) persist() error {
	data, err := json.MarshalIndent(c.entries.Items(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".dirsync-cache-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary cache file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary cache file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return err
	}
	tmpPath = ""
	plog.Debug("Fingerprint cache persisted", "path", c.path, "entries", c.Len())
	return nil
}
