// Package cache persists assistant replies keyed by transcript content, so
// re-analyzing an unchanged conversation costs no tokens.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"go.aimuz.me/glint/internal/types"
)

// DefaultTTL bounds how long a cached reply stays valid. Conversations move
// on; an hour-old suggestion list is stale anyway.
const DefaultTTL = time.Hour

// Entry is one cached assistant reply.
type Entry struct {
	Lines     []string    `json:"lines"`
	Usage     types.Usage `json:"usage"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Cache is a badger-backed reply cache.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) the cache at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithValueLogFileSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// OpenInMemory opens an in-memory cache, used in tests and when the config
// directory is unavailable.
func OpenInMemory() (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GenerateKey derives a stable cache key from its parts (model, language,
// transcript, ...).
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0}) // separator so ("ab","c") != ("a","bc")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached entry for key, or false on miss. A corrupt entry
// counts as a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	switch {
	case err == nil:
		return &entry, true
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false
	default:
		slog.Warn("cache read failed", "error", err)
		return nil, false
	}
}

// Set stores an entry under key with the given TTL (DefaultTTL if zero).
func (c *Cache) Set(key string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), val).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
