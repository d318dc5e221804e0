// Package cache stores per-file scan results keyed by content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Cache provides file-based caching of per-file results. An entry is only
// served while the file's content hash is unchanged.
type Cache struct {
	dir     string
	version string
	enabled bool
}

// Entry represents one cached result.
type Entry struct {
	Hash      string          `json:"hash"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New creates a cache rooted at dir. Entries written under a different
// version string are treated as misses.
func New(dir, version string, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, version: version, enabled: true}, nil
}

// Disabled returns a cache that never hits.
func Disabled() *Cache {
	return &Cache{}
}

// Enabled reports whether lookups can hit.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Lookup decodes the cached value for key into out when the stored hash
// matches contentHash.
func (c *Cache) Lookup(key, contentHash string, out any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := os.ReadFile(c.keyPath(key))
	if err != nil {
		return false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false
	}
	if entry.Hash != contentHash || entry.Version != c.version {
		return false
	}
	return json.Unmarshal(entry.Data, out) == nil
}

// Store saves value for key under contentHash. The write goes through a
// temporary file so concurrent readers never see a partial entry.
func (c *Cache) Store(key, contentHash string, value any) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entryData, err := json.Marshal(Entry{
		Hash:      contentHash,
		Version:   c.version,
		Timestamp: time.Now(),
		Data:      payload,
	})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(entryData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.keyPath(key))
}

// Invalidate removes a cache entry.
func (c *Cache) Invalidate(key string) error {
	if !c.Enabled() {
		return nil
	}
	err := os.Remove(c.keyPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:16])+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int   `json:"entries"`
	TotalSize int64 `json:"total_size"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{}
	if !c.Enabled() {
		return stats, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}
