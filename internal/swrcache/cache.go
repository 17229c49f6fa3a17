// Package swrcache serves values with stale-while-revalidate semantics: fresh
// entries are returned as is, stale ones are returned while a background
// fetch replaces them, expired ones are fetched synchronously.
//
// Entries live in memory and, when the cache has a directory, in one JSON
// file per key so a later process starts warm. Concurrent fetches of the same
// key are collapsed into one.
package swrcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultFreshTTL = 5 * time.Minute
	defaultMaxStale = time.Hour
	refreshTimeout  = 30 * time.Second
)

// Cache provides stale-while-revalidate caching.
type Cache struct {
	dir      string
	freshTTL time.Duration
	maxStale time.Duration

	group singleflight.Group

	mu  sync.Mutex
	mem map[string]any
	now func() time.Time
}

// New returns a cache rooted at dir with default TTLs. An empty dir keeps
// entries in memory only.
func New(dir string) *Cache {
	return WithTTLs(dir, defaultFreshTTL, defaultMaxStale)
}

// NewDefault returns a cache rooted at the OS user cache dir.
func NewDefault() *Cache {
	return New(DefaultDir())
}

// WithTTLs returns a new cache rooted at dir with custom TTLs.
func WithTTLs(dir string, freshTTL, maxStale time.Duration) *Cache {
	return &Cache{dir: dir, freshTTL: freshTTL, maxStale: maxStale, mem: map[string]any{}, now: time.Now}
}

// GetOrFetch returns cached data using stale-while-revalidate semantics.
// A nil cache always fetches.
func GetOrFetch[T any](c *Cache, ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fetch(ctx)
	}

	entry, ok := lookup[T](c, key)
	if !ok || entry.FetchedAt.IsZero() {
		return fetchAndStore(c, ctx, key, fetch)
	}

	age := entry.age(c.now())
	if age < 0 {
		return fetchAndStore(c, ctx, key, fetch)
	}

	if age <= c.freshTTL {
		return entry.Data, nil
	}

	if c.maxStale <= 0 || age <= c.maxStale {
		revalidate(c, key, fetch)
		return entry.Data, nil
	}

	return fetchAndStore(c, ctx, key, fetch)
}

// Invalidate removes a single cached entry.
func (c *Cache) Invalidate(key string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()

	if c.dir == "" {
		return nil
	}
	err := os.Remove(c.pathForKey(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// InvalidatePrefix removes cached entries with the given key prefix.
func (c *Cache) InvalidatePrefix(prefix string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	for key := range c.mem {
		if strings.HasPrefix(key, prefix) {
			delete(c.mem, key)
		}
	}
	c.mu.Unlock()

	return c.removeFiles(sanitizeKey(prefix))
}

// Clear removes all cached entries.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	clear(c.mem)
	c.mu.Unlock()

	return c.removeFiles("")
}

func (c *Cache) removeFiles(prefix string) error {
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) {
			if err := os.RemoveAll(filepath.Join(c.dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func lookup[T any](c *Cache, key string) (Entry[T], bool) {
	c.mu.Lock()
	v, ok := c.mem[key]
	c.mu.Unlock()
	if ok {
		if e, ok := v.(Entry[T]); ok {
			return e, true
		}
	}

	e, ok, err := readEntry[T](c, key)
	if err != nil || !ok {
		return Entry[T]{}, false
	}
	c.mu.Lock()
	c.mem[key] = e
	c.mu.Unlock()
	return e, true
}

func store[T any](c *Cache, key string, data T) {
	e := Entry[T]{Data: data, FetchedAt: c.now()}
	c.mu.Lock()
	c.mem[key] = e
	c.mu.Unlock()
	_ = writeEntry(c, key, e)
}

func fetchAndStore[T any](c *Cache, ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		store(c, key, data)
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func revalidate[T any](c *Cache, key string, fetch func(context.Context) (T, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_, _ = fetchAndStore(c, ctx, key, fetch)
	}()
}

func readEntry[T any](c *Cache, key string) (Entry[T], bool, error) {
	var zero Entry[T]
	if c.dir == "" {
		return zero, false, nil
	}
	data, err := os.ReadFile(c.pathForKey(key))
	if err != nil {
		if os.IsNotExist(err) {
			return zero, false, nil
		}
		return zero, false, err
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false, nil
	}

	return entry, true, nil
}

func writeEntry[T any](c *Cache, key string, entry Entry[T]) error {
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, sanitizeKey(key)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}

	return os.Rename(name, c.pathForKey(key))
}

func (c *Cache) pathForKey(key string) string {
	return filepath.Join(c.dir, sanitizeKey(key)+".json")
}

// DefaultDir is where descriptors are cached between runs.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "actionmgr", "actions")
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
