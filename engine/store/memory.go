// Package store provides ProgressStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/claim-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[memKey]engine.ProgressRecord
}

type memKey struct {
	UserID   engine.UserID
	CacheKey string
}

func NewMemory() *Memory {
	return &Memory{records: make(map[memKey]engine.ProgressRecord)}
}

func (m *Memory) Get(_ context.Context, userID engine.UserID, cacheKey string) (engine.ProgressRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[memKey{UserID: userID, CacheKey: cacheKey}]
	return rec, ok, nil
}

func (m *Memory) Put(_ context.Context, userID engine.UserID, cacheKey string, rec engine.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[memKey{UserID: userID, CacheKey: cacheKey}] = rec
	return nil
}

// =============================================================================
// FLAKY STORE - Wraps Memory with injectable failures (for testing the
// cache's degrade-gracefully semantics)
// =============================================================================

type Flaky struct {
	*Memory
	FailGet bool
	FailPut bool
	Err     error
}

func NewFlaky(err error) *Flaky {
	return &Flaky{Memory: NewMemory(), Err: err}
}

func (f *Flaky) Get(ctx context.Context, userID engine.UserID, cacheKey string) (engine.ProgressRecord, bool, error) {
	if f.FailGet {
		return engine.ProgressRecord{}, false, f.Err
	}
	return f.Memory.Get(ctx, userID, cacheKey)
}

func (f *Flaky) Put(ctx context.Context, userID engine.UserID, cacheKey string, rec engine.ProgressRecord) error {
	if f.FailPut {
		return f.Err
	}
	return f.Memory.Put(ctx, userID, cacheKey, rec)
}
