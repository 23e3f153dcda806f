package linear

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/metrics"
)

// CacheType names one logical resource; each owns exactly one cache file.
type CacheType string

const (
	CacheTypeTeams    CacheType = "teams"
	CacheTypeUsers    CacheType = "users"
	CacheTypeStatuses CacheType = "statuses"
	CacheTypeLabels   CacheType = "labels"
	CacheTypeProjects CacheType = "projects"
	CacheTypeViews    CacheType = "views"
)

// AllCacheTypes lists every cache type in display order.
func AllCacheTypes() []CacheType {
	return []CacheType{
		CacheTypeTeams,
		CacheTypeUsers,
		CacheTypeStatuses,
		CacheTypeLabels,
		CacheTypeProjects,
		CacheTypeViews,
	}
}

// ParseCacheType maps a user supplied name (case-insensitive) to a CacheType.
func ParseCacheType(name string) (CacheType, error) {
	for _, cacheType := range AllCacheTypes() {
		if strings.EqualFold(string(cacheType), name) {
			return cacheType, nil
		}
	}

	return "", fmt.Errorf("%w: %s", constants.ErrUnknownCacheType, name)
}

// CacheEntry is the on-disk document for one cache type.
type CacheEntry struct {
	Timestamp  uint64          `json:"timestamp"`
	TTLSeconds uint64          `json:"ttl_seconds"`
	Data       json.RawMessage `json:"data"`
}

// IsValid reports whether the entry is fresh under its own TTL.
func (e *CacheEntry) IsValid(now time.Time) bool {
	return e.IsValidFor(now, e.TTLSeconds)
}

// IsValidFor reports whether the entry is fresh under ttlSeconds.
func (e *CacheEntry) IsValidFor(now time.Time, ttlSeconds uint64) bool {
	return unixSeconds(now) < e.Timestamp+ttlSeconds
}

// Age returns how long ago the entry was written.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	current := unixSeconds(now)
	if current <= e.Timestamp {
		return 0
	}

	return time.Duration(current-e.Timestamp) * time.Second
}

func unixSeconds(t time.Time) uint64 {
	seconds := t.Unix()
	if seconds < 0 {
		return 0
	}

	return uint64(seconds)
}

// CacheStatus describes one cache type for `cache status`.
type CacheStatus struct {
	Type      CacheType     `json:"type"       yaml:"type"`
	Exists    bool          `json:"exists"     yaml:"exists"`
	Valid     bool          `json:"valid"      yaml:"valid"`
	Age       time.Duration `json:"age"        yaml:"age"`
	SizeBytes int           `json:"size_bytes" yaml:"size_bytes"`
	ItemCount int           `json:"item_count" yaml:"item_count"`
}

// Cache is a TTL-bounded store of JSON documents, one per CacheType. Expired
// entries are evicted when read; there is no background sweep.
type Cache struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	logger  Logger
	metrics *metrics.Collector

	// keyedMutex serializes in-process keyed read-modify-write cycles.
	keyedMutex sync.Mutex
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithCacheClock overrides time.Now.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithCacheLogger sets the diagnostic logger.
func WithCacheLogger(logger Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheMetrics records lookups.
func WithCacheMetrics(collector *metrics.Collector) CacheOption {
	return func(c *Cache) {
		c.metrics = collector
	}
}

// NewCache wraps store with a TTL.
func NewCache(store Store, ttl time.Duration, opts ...CacheOption) *Cache {
	cache := &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: NopLogger{},
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// NewCacheFromConfig builds the configured store and wraps it.
func NewCacheFromConfig(config CacheConfig, opts ...CacheOption) (*Cache, error) {
	store, err := NewStoreFromConfig(config)
	if err != nil {
		return nil, err
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	return NewCache(store, ttl, opts...), nil
}

// TTL returns the lifetime written into new entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Store returns the backing store.
func (c *Cache) Store() Store {
	return c.store
}

func (c *Cache) ttlSeconds() uint64 {
	if c.ttl <= 0 {
		return 0
	}

	return uint64(c.ttl / time.Second)
}

// readEntry loads and decodes an entry without any TTL check. A corrupt
// document is removed and reported as absent.
func (c *Cache) readEntry(ctx context.Context, cacheType CacheType) (*CacheEntry, int, bool) {
	raw, err := c.store.Read(ctx, string(cacheType))
	if err != nil {
		if !errors.Is(err, ErrStoreKeyNotFound) {
			c.logger.Debug("Cache read failed", map[string]interface{}{
				"type":  string(cacheType),
				"error": err.Error(),
			})
		}

		return nil, 0, false
	}

	var entry CacheEntry

	err = json.Unmarshal(raw, &entry)
	if err != nil {
		c.logger.Debug("Discarding unreadable cache entry", map[string]interface{}{
			"type":  string(cacheType),
			"error": err.Error(),
		})

		_ = c.store.Remove(ctx, string(cacheType))

		return nil, len(raw), false
	}

	return &entry, len(raw), true
}

// Get returns the cached data if it is fresh under the entry's stored TTL.
// An expired entry is deleted.
func (c *Cache) Get(ctx context.Context, cacheType CacheType) (json.RawMessage, bool) {
	return c.get(ctx, cacheType, nil)
}

// GetWithTTL is Get with freshness judged against ttl instead of the stored TTL.
func (c *Cache) GetWithTTL(ctx context.Context, cacheType CacheType, ttl time.Duration) (json.RawMessage, bool) {
	seconds := uint64(0)
	if ttl > 0 {
		seconds = uint64(ttl / time.Second)
	}

	return c.get(ctx, cacheType, &seconds)
}

func (c *Cache) get(ctx context.Context, cacheType CacheType, overrideTTL *uint64) (json.RawMessage, bool) {
	entry, _, ok := c.readEntry(ctx, cacheType)
	if !ok {
		c.metrics.CacheLookup(string(cacheType), "miss")

		return nil, false
	}

	ttlSeconds := entry.TTLSeconds
	if overrideTTL != nil {
		ttlSeconds = *overrideTTL
	}

	if !entry.IsValidFor(c.now(), ttlSeconds) {
		c.metrics.CacheLookup(string(cacheType), "expired")

		err := c.store.Remove(ctx, string(cacheType))
		if err != nil {
			c.logger.Debug("Failed to evict expired cache entry", map[string]interface{}{
				"type":  string(cacheType),
				"error": err.Error(),
			})
		}

		return nil, false
	}

	c.metrics.CacheLookup(string(cacheType), "hit")

	return entry.Data, true
}

// Set replaces the entry for cacheType with data stamped now.
func (c *Cache) Set(ctx context.Context, cacheType CacheType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding cache data: %w", err)
	}

	entry := CacheEntry{
		Timestamp:  unixSeconds(c.now()),
		TTLSeconds: c.ttlSeconds(),
		Data:       raw,
	}

	document, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	err = c.store.Write(ctx, string(cacheType), document)
	if err != nil {
		return fmt.Errorf("writing %s cache: %w", cacheType, err)
	}

	return nil
}

// ClearType deletes one cache type. Clearing an absent entry succeeds.
func (c *Cache) ClearType(ctx context.Context, cacheType CacheType) error {
	err := c.store.Remove(ctx, string(cacheType))
	if err != nil {
		return fmt.Errorf("clearing %s cache: %w", cacheType, err)
	}

	return nil
}

// ClearAll deletes every cache type.
func (c *Cache) ClearAll(ctx context.Context) error {
	var errs []error

	for _, cacheType := range AllCacheTypes() {
		err := c.ClearType(ctx, cacheType)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Status reports validity, age, size and item count for every cache type.
func (c *Cache) Status(ctx context.Context) []CacheStatus {
	now := c.now()
	statuses := make([]CacheStatus, 0, len(AllCacheTypes()))

	for _, cacheType := range AllCacheTypes() {
		status := CacheStatus{Type: cacheType}

		raw, err := c.store.Read(ctx, string(cacheType))
		if err == nil {
			status.Exists = true
			status.SizeBytes = len(raw)

			var entry CacheEntry
			if json.Unmarshal(raw, &entry) == nil {
				status.Valid = entry.IsValid(now)
				status.Age = entry.Age(now)
				status.ItemCount = countItems(entry.Data)
			}
		}

		statuses = append(statuses, status)
	}

	return statuses
}

// countItems returns the array length, the length of .nodes for a
// connection-shaped object, or 1.
func countItems(data json.RawMessage) int {
	var tree any
	if json.Unmarshal(data, &tree) != nil {
		return 0
	}

	switch value := tree.(type) {
	case []any:
		return len(value)
	case map[string]any:
		if nodes, ok := value["nodes"].([]any); ok {
			return len(nodes)
		}
	}

	return 1
}
