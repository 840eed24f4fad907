// Package cache provides file-based caching of computed measurement
// trees, keyed by a BLAKE3 digest of the skeleton and the report
// parameters. A cache hit must round-trip to a tree identical to a
// fresh computation; anything less is a corruption and is discarded.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Cache stores serialized measurement trees on disk with a TTL.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// entry is the on-disk envelope of one cached tree.
type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// New creates a cache rooted at dir. A disabled cache is a valid
// no-op instance.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Key derives a cache key from the skeleton bytes, the metric name
// and the canonical encoding of the report parameters.
func Key(skeleton []byte, metric string, params []byte) string {
	h := blake3.New()
	h.Write(skeleton)
	h.Write([]byte{0})
	h.Write([]byte(metric))
	h.Write([]byte{0})
	h.Write(params)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached tree if present and not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		os.Remove(path)
		return nil, false
	}
	if time.Since(e.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}
	return e.Data, true
}

// Set stores a serialized tree under key.
func (c *Cache) Set(key string, data []byte) error {
	if !c.enabled {
		return nil
	}

	payload, err := json.Marshal(entry{Timestamp: time.Now(), Data: data})
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(key), payload, 0600)
}

// Clear removes every cache entry.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath maps a key to a stable filename.
func (c *Cache) keyPath(key string) string {
	sum := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
