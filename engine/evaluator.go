/*
evaluator.go - Fetch, merge, decide, submit orchestration

PURPOSE:
  Ties the pieces together the way every claim screen uses them:

    screen focus / refresh
      -> FetchProgress (authoritative)      [falls back to cache on failure]
      -> monotonic merge with cached state
      -> decide (pure rule)
      -> persist merged record
      -> render decision

    user action
      -> SubmitClaim
      -> on accept: merge Claimed=true into cache
      -> re-evaluate

ORDERING:
  Within one logical session a submit that follows a fetch always sees at
  least the state that fetch returned, because every cache mutation goes
  through the monotonic merge. A superseded in-flight fetch that resolves
  late merges harmlessly - no cancellation needed for correctness.

SEE ALSO:
  - rules.go:  The pure decision functions
  - cache.go:  Failure-absorbing persistence
  - remote.go: The adapter contract
*/
package engine

import (
	"context"
	"log"
	"time"
)

// Evaluator runs the fetch/merge/decide/submit flow for claim screens.
type Evaluator struct {
	Remote SyncAdapter
	Cache  *Cache

	logf func(format string, args ...any)
}

// NewEvaluator creates an evaluator over an adapter and a cache.
func NewEvaluator(remote SyncAdapter, cache *Cache) *Evaluator {
	return &Evaluator{Remote: remote, Cache: cache, logf: log.Printf}
}

// Evaluate produces the current decision for (user, claim) at `now`.
// It never returns an error: a failed authoritative fetch degrades to a
// cached-only evaluation with Decision.FromCache set, and the decision's
// merged record is persisted so the next successful fetch loses nothing.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time, userID UserID, claim ClaimType, kind PeriodKind, decide DecideFunc) Decision {
	key := FormatPeriodKey(kind, now)

	var cachedPtr *ProgressRecord
	if cached, ok := e.Cache.Get(ctx, userID, claim, key); ok {
		cachedPtr = &cached
	}

	var serverPtr *ProgressRecord
	fromCache := false
	server, err := e.Remote.FetchProgress(ctx, userID, claim, key)
	if err != nil {
		// Recoverable by contract: evaluate against cache only.
		e.logf("[evaluate] %s/%s fetch failed, using cached state: %v", userID, claim.ClaimID(), err)
		fromCache = true
	} else {
		server.UserID = userID
		server.PeriodKey = key
		serverPtr = &server
	}

	d := decide(now, key, serverPtr, cachedPtr)
	d.Record.UserID = userID
	d.Record.PeriodKey = key
	d.Record = e.Cache.MergeIn(ctx, userID, claim, key, d.Record)
	d.FromCache = fromCache
	return d
}

// Submit posts a claim for the current period and, when the server
// accepts it, closes the period locally by merging Claimed=true. On an
// adapter error the claim is never marked done - the caller shows the
// failure and may retry. The returned request is what was sent, for
// local journaling.
func (e *Evaluator) Submit(ctx context.Context, now time.Time, userID UserID, claim ClaimType, kind PeriodKind) (ClaimRequest, SubmitResult, error) {
	key := FormatPeriodKey(kind, now)
	req := ClaimRequest{
		ID:          NewRequestID(userID, now),
		UserID:      userID,
		Claim:       claim,
		PeriodKey:   key,
		SubmittedAt: now,
	}

	res, err := e.Remote.SubmitClaim(ctx, req)
	if err != nil {
		return req, SubmitResult{}, err
	}

	if res.Accepted {
		e.Cache.MergeIn(ctx, userID, claim, key, ProgressRecord{
			UserID:    userID,
			PeriodKey: key,
			Claimed:   true,
		})
	}
	return req, res, nil
}
