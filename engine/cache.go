/*
cache.go - Best-effort persisted progress cache

PURPOSE:
  Defines the interface between the engine and device persistence, and a
  Cache wrapper that applies the engine's failure semantics: a storage
  read failure is a cold cache, never a crash; a storage write failure is
  logged and swallowed, and the in-memory value is still returned so the
  current session keeps working (best-effort persistence, not a
  durable-write guarantee).

KEYING:
  Entries are keyed per (userID, claimType, periodKey), stored under a
  namespaced key such as "ev:disc-monthly:monthly:2025-03". Old period
  keys become unreachable when the period rolls over; they are not
  actively purged.

IMPLEMENTATIONS:
  - store/sqlite:         Persistent device cache
  - engine/store/memory:  In-memory for testing/dev

SEE ALSO:
  - merge.go: The only way cached values are ever mutated
*/
package engine

import (
	"context"
	"log"
)

// =============================================================================
// PROGRESS STORE - Interface for cache persistence
// =============================================================================

// ProgressStore persists progress records under namespaced cache keys.
// Implementations return an error wrapping ErrStorage on I/O failure;
// the Cache wrapper decides how to degrade.
type ProgressStore interface {
	// Get returns the record stored under (userID, cacheKey).
	// The bool reports presence.
	Get(ctx context.Context, userID UserID, cacheKey string) (ProgressRecord, bool, error)

	// Put overwrites the record stored under (userID, cacheKey).
	Put(ctx context.Context, userID UserID, cacheKey string, rec ProgressRecord) error
}

// CacheKey composes the namespaced storage key for a claim type and
// period, e.g. "ev:tidy-daily:daily:2025-03-15".
func CacheKey(claim ClaimType, key PeriodKey) string {
	return "ev:" + claim.ClaimID() + ":" + string(key)
}

// =============================================================================
// CACHE - Failure-absorbing wrapper around a ProgressStore
// =============================================================================

// Cache wraps a ProgressStore with the engine's degrade-gracefully
// failure semantics.
type Cache struct {
	store ProgressStore
	logf  func(format string, args ...any)
}

// NewCache creates a cache over the given store.
func NewCache(store ProgressStore) *Cache {
	return &Cache{store: store, logf: log.Printf}
}

// Get returns the cached record for (userID, claim, period), or absent.
// A storage failure is treated as a cold start, never surfaced.
func (c *Cache) Get(ctx context.Context, userID UserID, claim ClaimType, key PeriodKey) (ProgressRecord, bool) {
	rec, ok, err := c.store.Get(ctx, userID, CacheKey(claim, key))
	if err != nil {
		c.logf("[cache] read %s/%s failed, treating as absent: %v", userID, CacheKey(claim, key), err)
		return ProgressRecord{}, false
	}
	return rec, ok
}

// Put overwrites the cached record. A storage failure is logged and
// swallowed; the caller keeps using the in-memory value.
func (c *Cache) Put(ctx context.Context, userID UserID, claim ClaimType, key PeriodKey, rec ProgressRecord) {
	if err := c.store.Put(ctx, userID, CacheKey(claim, key), rec); err != nil {
		c.logf("[cache] write %s/%s failed, keeping in-memory value: %v", userID, CacheKey(claim, key), err)
	}
}

// MergeIn merges an incoming record into the cached value and persists
// the result. Returns the merged record, which is the new visible state
// for the current session even if the write failed.
func (c *Cache) MergeIn(ctx context.Context, userID UserID, claim ClaimType, key PeriodKey, incoming ProgressRecord) ProgressRecord {
	existing, ok := c.Get(ctx, userID, claim, key)
	merged := incoming
	if ok {
		merged = Merge(existing, incoming)
	} else {
		merged = Merge(ZeroRecord(userID, key), incoming)
	}
	c.Put(ctx, userID, claim, key, merged)
	return merged
}
