package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a single cached value with its expiry metadata.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

// Cache is a small file-backed JSON cache with per-entry TTLs. It keeps
// slow-moving external data (the catalog set list, currency rate tables)
// warm across restarts.
type Cache struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
	// saveMu serializes flushes so a stale snapshot can never overwrite
	// a newer one on disk.
	saveMu sync.Mutex
}

// New loads the cache at path, starting fresh if the file is missing or
// corrupt.
func New(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.entries); err != nil {
			// Corrupt cache is not worth failing startup over.
			c.entries = make(map[string]Entry)
		}
	}
	return c, nil
}

// Get unmarshals the entry for key into target. Returns false on a miss
// or an expired entry.
func (c *Cache) Get(key string, target interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if entry.TTL > 0 && time.Since(entry.Timestamp) > entry.TTL {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

// Put stores value under key with the given TTL and flushes to disk.
// A zero TTL means the entry never expires.
func (c *Cache) Put(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = Entry{Data: data, Timestamp: time.Now(), TTL: ttl}
	c.mu.Unlock()

	return c.save()
}

// Remove deletes a single entry.
func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return c.save()
}

// Clear drops every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
	return c.save()
}

func (c *Cache) save() error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	return os.WriteFile(c.path, data, 0o644)
}

// BuildKey joins key parts with a separator that cannot appear in set IDs
// or currency codes.
func BuildKey(parts ...string) string {
	key := ""
	for i, part := range parts {
		if i > 0 {
			key += "|"
		}
		key += part
	}
	return key
}

// SetsKey is the cache key for the catalog's set list.
func SetsKey() string {
	return "catalog|sets"
}

// RatesKey is the cache key for a currency rate table.
func RatesKey(base string) string {
	return BuildKey("rates", base)
}
