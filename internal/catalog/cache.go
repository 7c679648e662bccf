package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	Body      json.RawMessage `json:"body"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type cacheFile struct {
	Entries map[string]cacheEntry `json:"entries"`
}

// cache keeps catalog documents on disk for a TTL. Failures only cost a
// refetch, so they are ignored.
type cache struct {
	path string
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

func newCache(path string, ttl time.Duration) *cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &cache{path: path, ttl: ttl, now: time.Now}
}

func (c *cache) load() cacheFile {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return cacheFile{Entries: map[string]cacheEntry{}}
	}
	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil || cf.Entries == nil {
		return cacheFile{Entries: map[string]cacheEntry{}}
	}
	return cf
}

func (c *cache) get(key string) ([]byte, bool) {
	if c == nil || c.path == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.load().Entries[key]
	if !ok || c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Body, true
}

func (c *cache) put(key string, body []byte) {
	if c == nil || c.path == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cf := c.load()
	cf.Entries[key] = cacheEntry{Body: json.RawMessage(body), FetchedAt: c.now()}
	data, err := json.Marshal(cf)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "catalog-cache-*.json")
	if err != nil {
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return
	}
	if err := tmp.Close(); err != nil {
		return
	}
	_ = os.Rename(tmp.Name(), c.path)
}
