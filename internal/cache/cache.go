package cache

import (
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"instrupro-backend/internal/parse"
)

// Keys of the screen caches.
const (
	KeyDashboard  = "dashboard_equipment_data"
	KeyHistory    = "packers_history_cache"
	KeyPLCRequest = "plc_modifications_cache_v1"
)

// DefaultDashboardTTL is the dashboard snapshot lifetime.
const DefaultDashboardTTL = 5 * time.Minute

// Entry is a cached snapshot and the instant it was taken.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
}

type wireEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp any             `json:"timestamp"`
}

// Options configures a LocalCache.
type Options struct {
	Key string
	// TTL is the absolute expiry of an entry. Zero keeps entries until they
	// are invalidated.
	TTL    time.Duration
	Clock  func() time.Time
	Logger *zap.Logger
}

// LocalCache is a read-through snapshot cache for one key of a Store. Entries
// that could not be persisted are kept in memory and served for the life of
// the process.
type LocalCache[T any] struct {
	store  Store
	key    string
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
	memory *gocache.Cache
}

// New creates a LocalCache over store.
func New[T any](store Store, opts Options) *LocalCache[T] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &LocalCache[T]{
		store: store,
		key:   opts.Key,
		ttl:   opts.TTL,
		now:   opts.Clock,
		log:   opts.Logger.With(zap.String("cache_key", opts.Key)),
		// Expiry is checked against the injected clock, so the memory tier
		// never expires on its own and runs no janitor.
		memory: gocache.New(gocache.NoExpiration, 0),
	}
}

// Key is the store key of the cache.
func (c *LocalCache[T]) Key() string { return c.key }

// TTL is zero for manually managed caches.
func (c *LocalCache[T]) TTL() time.Duration { return c.ttl }

// Get returns the cached entry. Missing, corrupt and expired entries are
// misses; a corrupt payload is logged.
func (c *LocalCache[T]) Get() (*Entry[T], bool) {
	entry := c.load()
	if mem, ok := c.memory.Get(c.key); ok {
		if m := mem.(*Entry[T]); entry == nil || m.Timestamp.After(entry.Timestamp) {
			entry = m
		}
	}
	if entry == nil {
		return nil, false
	}
	if t, ok := c.memory.Get(c.tombstoneKey()); ok && !entry.Timestamp.After(t.(time.Time)) {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.Timestamp) >= c.ttl {
		return nil, false
	}
	return entry, true
}

func (c *LocalCache[T]) load() *Entry[T] {
	raw, ok, err := c.store.GetItem(c.key)
	if err != nil {
		c.log.Warn("Failed to read cache entry", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var w wireEntry
	if err := json.Unmarshal([]byte(raw), &w); err != nil || len(w.Data) == 0 {
		c.log.Warn("Discarding corrupt cache entry", zap.Error(err))
		return nil
	}
	ts, ok := parse.NormalizeTimestamp(w.Timestamp)
	if !ok {
		c.log.Warn("Discarding cache entry without a usable timestamp")
		return nil
	}
	entry := &Entry[T]{Timestamp: ts}
	if err := json.Unmarshal(w.Data, &entry.Data); err != nil {
		c.log.Warn("Discarding corrupt cache entry", zap.Error(err))
		return nil
	}
	return entry
}

// Set stores data stamped with the current time, replacing any previous
// entry. A persist failure is logged and the entry is kept in memory.
func (c *LocalCache[T]) Set(data T) *Entry[T] {
	entry := &Entry[T]{Data: data, Timestamp: c.now()}
	c.memory.Delete(c.tombstoneKey())

	payload, err := encode(entry)
	if err == nil {
		err = c.store.SetItem(c.key, payload)
	}
	if err != nil {
		c.log.Warn("Failed to persist cache entry, keeping it in memory", zap.Error(err))
		c.memory.Set(c.key, entry, gocache.NoExpiration)
		return entry
	}
	c.memory.Delete(c.key)
	return entry
}

// Invalidate removes the entry. The next Get misses until Set is called.
func (c *LocalCache[T]) Invalidate() {
	c.memory.Delete(c.key)
	if err := c.store.RemoveItem(c.key); err != nil {
		c.log.Warn("Failed to remove cache entry", zap.Error(err))
		// Shadow the stale durable entry until a newer one is written.
		c.memory.Set(c.tombstoneKey(), c.now(), gocache.NoExpiration)
	}
}

func (c *LocalCache[T]) tombstoneKey() string { return "\x00removed:" + c.key }

func encode[T any](e *Entry[T]) (string, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(wireEntry{
		Data:      data,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
