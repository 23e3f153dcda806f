package linear

import (
	"context"
	"encoding/json"
	"fmt"
)

// keyedValue is one sub-entry of a keyed cache document. Timestamp is a
// pointer so documents written before the keyed format can be told apart.
type keyedValue struct {
	Data      json.RawMessage `json:"data"`
	Timestamp *uint64         `json:"timestamp"`
}

// GetKeyed returns the sub-entry for key if it is fresh. Each key ages
// independently; the entry's ttl_seconds is the per-key TTL. Documents in the
// older single-blob format read as expired.
func (c *Cache) GetKeyed(ctx context.Context, cacheType CacheType, key string) (json.RawMessage, bool) {
	entry, _, ok := c.readEntry(ctx, cacheType)
	if !ok {
		c.metrics.CacheLookup(string(cacheType), "miss")

		return nil, false
	}

	var values map[string]json.RawMessage
	if json.Unmarshal(entry.Data, &values) != nil {
		c.metrics.CacheLookup(string(cacheType), "expired")

		return nil, false
	}

	rawValue, ok := values[key]
	if !ok {
		c.metrics.CacheLookup(string(cacheType), "miss")

		return nil, false
	}

	var value keyedValue
	if json.Unmarshal(rawValue, &value) != nil || value.Timestamp == nil {
		c.metrics.CacheLookup(string(cacheType), "expired")

		return nil, false
	}

	if unixSeconds(c.now()) >= *value.Timestamp+entry.TTLSeconds {
		c.metrics.CacheLookup(string(cacheType), "expired")

		return nil, false
	}

	c.metrics.CacheLookup(string(cacheType), "hit")

	return value.Data, true
}

// SetKeyed upserts one sub-key with a fresh timestamp, leaving other keys and
// their timestamps as they were, and writes the document back through Set.
func (c *Cache) SetKeyed(ctx context.Context, cacheType CacheType, key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding cache data: %w", err)
	}

	c.keyedMutex.Lock()
	defer c.keyedMutex.Unlock()

	values := make(map[string]json.RawMessage)

	entry, _, ok := c.readEntry(ctx, cacheType)
	if ok {
		var existing map[string]json.RawMessage
		if json.Unmarshal(entry.Data, &existing) == nil {
			// keep only well-formed keyed values; a legacy blob is dropped
			for existingKey, rawValue := range existing {
				var value keyedValue
				if json.Unmarshal(rawValue, &value) == nil && value.Timestamp != nil {
					values[existingKey] = rawValue
				}
			}
		}
	}

	timestamp := unixSeconds(c.now())

	encoded, err := json.Marshal(keyedValue{Data: raw, Timestamp: &timestamp})
	if err != nil {
		return fmt.Errorf("encoding keyed cache value: %w", err)
	}

	values[key] = encoded

	return c.Set(ctx, cacheType, values)
}
