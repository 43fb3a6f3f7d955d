/*
refresher.go - Background progress refresher

PURPOSE:
  Periodically re-fetches authoritative progress for tracked users and
  merges it into the device cache, so claim screens open on fresh data
  even before their own fetch resolves.

DESIGN:
  - Runs a background goroutine with a configurable poll interval
  - Tracks the users seen by the API layer (bounded registry)
  - Every pass fetches each tracked user's progress per claim type and
    merges it; a pass overlapping a manual refresh is harmless because
    the merge is idempotent
  - A late result from a superseded pass is also harmless for the same
    reason; passes are never cancelled

USAGE:
  refresher := api.NewRefresher(store, backend)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - engine/merge.go: Why concurrent passes cannot corrupt state
  - handlers.go: Track() is called on every user-scoped request
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/claim-engine/claims"
	"github.com/warp/claim-engine/engine"
	"github.com/warp/claim-engine/remote"
	"github.com/warp/claim-engine/store/sqlite"
)

// maxTrackedUsers bounds the refresher registry; beyond this, new users
// are simply not polled until older entries age out on restart.
const maxTrackedUsers = 512

// Refresher polls the backend for tracked users' progress.
type Refresher struct {
	Backend      *remote.Client
	PollInterval time.Duration
	Enabled      bool

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	cache   *engine.Cache
	tracked map[engine.UserID]struct{}

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefresher creates a refresher over the device cache and backend.
func NewRefresher(store *sqlite.Store, backend *remote.Client) *Refresher {
	return &Refresher{
		Backend:      backend,
		PollInterval: 5 * time.Minute,
		Enabled:      true,
		Now:          time.Now,
		cache:        engine.NewCache(store),
		tracked:      make(map[engine.UserID]struct{}),
		stop:         make(chan struct{}),
	}
}

// Track registers a user for background polling.
func (rf *Refresher) Track(userID engine.UserID) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if len(rf.tracked) >= maxTrackedUsers {
		return
	}
	rf.tracked[userID] = struct{}{}
}

// Start begins the poll loop.
func (rf *Refresher) Start() {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if !rf.Enabled {
		log.Println("[Refresher] Disabled, not starting")
		return
	}

	rf.ticker = time.NewTicker(rf.PollInterval)
	rf.wg.Add(1)
	go rf.run()

	log.Printf("[Refresher] Started with poll interval: %v", rf.PollInterval)
}

// Stop halts the poll loop and waits for an in-flight pass to finish.
func (rf *Refresher) Stop() {
	rf.mu.Lock()
	if rf.ticker == nil {
		rf.mu.Unlock()
		return
	}
	rf.ticker.Stop()
	rf.mu.Unlock()

	close(rf.stop)
	rf.wg.Wait()
	log.Println("[Refresher] Stopped")
}

func (rf *Refresher) run() {
	defer rf.wg.Done()

	for {
		select {
		case <-rf.stop:
			return
		case <-rf.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), remote.DefaultTimeout*2)
			rf.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce performs a single refresh pass over all tracked users.
func (rf *Refresher) RunOnce(ctx context.Context) {
	rf.mu.Lock()
	users := make([]engine.UserID, 0, len(rf.tracked))
	for u := range rf.tracked {
		users = append(users, u)
	}
	rf.mu.Unlock()

	now := rf.Now()
	refreshed, failed := 0, 0

	for _, userID := range users {
		for _, claim := range claims.All() {
			key := engine.FormatPeriodKey(claim.Period(), now)
			rec, err := rf.Backend.FetchProgress(ctx, userID, claim, key)
			if err != nil {
				failed++
				continue
			}
			rec.UserID = userID
			rec.PeriodKey = key
			rf.cache.MergeIn(ctx, userID, claim, key, rec)
			refreshed++
		}
	}

	if refreshed > 0 || failed > 0 {
		log.Printf("[Refresher] Pass complete: %d refreshed, %d failed", refreshed, failed)
	}
}
