package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/claim-engine/engine"
	"github.com/warp/claim-engine/engine/store"
)

// =============================================================================
// FAKE ADAPTER
// =============================================================================

type testClaim string

func (c testClaim) ClaimID() string     { return string(c) }
func (c testClaim) ClaimDomain() string { return "event" }

// fakeAdapter scripts the backend for one claim type.
type fakeAdapter struct {
	progress    engine.ProgressRecord
	fetchErr    error
	submitRes   engine.SubmitResult
	submitErr   error
	fetchCalls  int
	submitCalls int
	lastSubmit  engine.ClaimRequest
}

func (f *fakeAdapter) FetchProgress(_ context.Context, userID engine.UserID, _ engine.ClaimType, key engine.PeriodKey) (engine.ProgressRecord, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return engine.ProgressRecord{}, f.fetchErr
	}
	rec := f.progress
	rec.UserID = userID
	rec.PeriodKey = key
	return rec, nil
}

func (f *fakeAdapter) SubmitClaim(_ context.Context, req engine.ClaimRequest) (engine.SubmitResult, error) {
	f.submitCalls++
	f.lastSubmit = req
	if f.submitErr != nil {
		return engine.SubmitResult{}, f.submitErr
	}
	return f.submitRes, nil
}

func (f *fakeAdapter) FetchWindow(_ context.Context, _ engine.ClaimType, _ time.Time) (engine.EligibilityWindow, error) {
	return engine.EligibilityWindow{}, fmt.Errorf("window fetch: %w", engine.ErrServer)
}

var discDecide = func(now time.Time, key engine.PeriodKey, server, cached *engine.ProgressRecord) engine.Decision {
	return engine.DecideDiscipline(now, key, server, cached, engine.DisciplineConfig{TargetDays: 24})
}

// =============================================================================
// EVALUATE
// =============================================================================

func TestEvaluate_ServerStateMergedAndPersisted(t *testing.T) {
	// GIVEN: A fresh cache and a server reporting 18 of 24 days
	mem := store.NewMemory()
	adapter := &fakeAdapter{progress: engine.ProgressRecord{ProgressCount: 18, TargetCount: 24}}
	ev := engine.NewEvaluator(adapter, engine.NewCache(mem))

	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	claim := testClaim("disc-monthly")

	// WHEN: Evaluating the monthly claim
	d := ev.Evaluate(context.Background(), now, "emp-1", claim, engine.PeriodMonthly, discDecide)

	// THEN: Not yet eligible, record is live (not cache fallback)
	require.Equal(t, engine.StatusNotYetEligible, d.Status)
	assert.False(t, d.FromCache)
	assert.Equal(t, 18, d.Record.ProgressCount)

	// AND: The merged record was persisted under the namespaced key
	key := engine.FormatPeriodKey(engine.PeriodMonthly, now)
	stored, ok, err := mem.Get(context.Background(), "emp-1", engine.CacheKey(claim, key))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 18, stored.ProgressCount)
	assert.Equal(t, key, stored.PeriodKey)
}

func TestEvaluate_FetchFailureFallsBackToCache(t *testing.T) {
	// GIVEN: A cache that already holds 24 of 24 from a previous session
	mem := store.NewMemory()
	cache := engine.NewCache(mem)
	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	claim := testClaim("disc-monthly")
	key := engine.FormatPeriodKey(engine.PeriodMonthly, now)
	cache.Put(context.Background(), "emp-1", claim, key, engine.ProgressRecord{
		UserID: "emp-1", PeriodKey: key, ProgressCount: 24, TargetCount: 24,
	})

	// WHEN: The network is down
	adapter := &fakeAdapter{fetchErr: fmt.Errorf("fetch progress: %w", engine.ErrNetwork)}
	ev := engine.NewEvaluator(adapter, cache)
	d := ev.Evaluate(context.Background(), now, "emp-1", claim, engine.PeriodMonthly, discDecide)

	// THEN: Evaluation degrades to the cached record, flagged as such,
	// and the cached progress survives untouched
	require.Equal(t, engine.StatusEligible, d.Status)
	assert.True(t, d.FromCache)
	assert.Equal(t, 24, d.Record.ProgressCount)

	stored, ok := cache.Get(context.Background(), "emp-1", claim, key)
	require.True(t, ok)
	assert.Equal(t, 24, stored.ProgressCount)
}

func TestEvaluate_ColdCacheAndFetchFailure_NotYet(t *testing.T) {
	// GIVEN: Nothing cached and no network
	mem := store.NewMemory()
	adapter := &fakeAdapter{fetchErr: fmt.Errorf("fetch progress: %w", engine.ErrNetwork)}
	ev := engine.NewEvaluator(adapter, engine.NewCache(mem))

	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	d := ev.Evaluate(context.Background(), now, "emp-1", testClaim("tidy-daily"), engine.PeriodDaily, engine.DecideTidiness)

	// THEN: A zero record is synthesized, never a crash
	assert.Equal(t, engine.StatusNotYetEligible, d.Status)
	assert.True(t, d.FromCache)
	assert.Equal(t, engine.UserID("emp-1"), d.Record.UserID)
}

func TestEvaluate_StaleServerReadDoesNotRegressCache(t *testing.T) {
	// GIVEN: Cache at 20 days, server momentarily reporting 17
	mem := store.NewMemory()
	cache := engine.NewCache(mem)
	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	claim := testClaim("disc-monthly")
	key := engine.FormatPeriodKey(engine.PeriodMonthly, now)
	cache.Put(context.Background(), "emp-1", claim, key, engine.ProgressRecord{
		UserID: "emp-1", PeriodKey: key, ProgressCount: 20, TargetCount: 24,
	})

	adapter := &fakeAdapter{progress: engine.ProgressRecord{ProgressCount: 17, TargetCount: 24}}
	ev := engine.NewEvaluator(adapter, cache)

	d := ev.Evaluate(context.Background(), now, "emp-1", claim, engine.PeriodMonthly, discDecide)

	// THEN: The visible count stays at 20, in the decision and on disk
	assert.Equal(t, 20, d.Record.ProgressCount)
	stored, _ := cache.Get(context.Background(), "emp-1", claim, key)
	assert.Equal(t, 20, stored.ProgressCount)
}

func TestEvaluate_FlakyStorageDegradesQuietly(t *testing.T) {
	// GIVEN: A store whose reads and writes both fail
	flaky := store.NewFlaky(fmt.Errorf("disk full: %w", engine.ErrStorage))
	flaky.FailGet = true
	flaky.FailPut = true
	adapter := &fakeAdapter{progress: engine.ProgressRecord{ProgressCount: 24, TargetCount: 24}}
	ev := engine.NewEvaluator(adapter, engine.NewCache(flaky))

	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	d := ev.Evaluate(context.Background(), now, "emp-1", testClaim("disc-monthly"), engine.PeriodMonthly, discDecide)

	// THEN: The server-backed decision still renders
	assert.Equal(t, engine.StatusEligible, d.Status)
	assert.False(t, d.FromCache)
	assert.Equal(t, 24, d.Record.ProgressCount)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_AcceptedClosesPeriodLocally(t *testing.T) {
	// GIVEN: An eligible period
	mem := store.NewMemory()
	cache := engine.NewCache(mem)
	adapter := &fakeAdapter{
		progress:  engine.ProgressRecord{ProgressCount: 24, TargetCount: 24},
		submitRes: engine.SubmitResult{Accepted: true},
	}
	ev := engine.NewEvaluator(adapter, cache)

	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	claim := testClaim("disc-monthly")

	// WHEN: Submitting the claim
	req, res, err := ev.Submit(context.Background(), now, "emp-1", claim, engine.PeriodMonthly)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, engine.UserID("emp-1"), req.UserID)
	assert.Equal(t, engine.FormatPeriodKey(engine.PeriodMonthly, now), req.PeriodKey)
	assert.Equal(t, 1, adapter.submitCalls)

	// THEN: Re-evaluation sees the period closed
	d := ev.Evaluate(context.Background(), now, "emp-1", claim, engine.PeriodMonthly, discDecide)
	assert.Equal(t, engine.StatusClosed, d.Status)
	assert.True(t, d.Record.Claimed)
}

func TestSubmit_DeclinedLeavesPeriodOpen(t *testing.T) {
	mem := store.NewMemory()
	adapter := &fakeAdapter{
		progress:  engine.ProgressRecord{ProgressCount: 24, TargetCount: 24},
		submitRes: engine.SubmitResult{Accepted: false, Reason: "sudah diklaim bulan ini", Severity: "warning"},
	}
	ev := engine.NewEvaluator(adapter, engine.NewCache(mem))

	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	claim := testClaim("disc-monthly")

	_, res, err := ev.Submit(context.Background(), now, "emp-1", claim, engine.PeriodMonthly)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "sudah diklaim bulan ini", res.Reason)

	// Declined means not closed locally: a later evaluation is still open.
	d := ev.Evaluate(context.Background(), now, "emp-1", claim, engine.PeriodMonthly, discDecide)
	assert.Equal(t, engine.StatusEligible, d.Status)
	assert.False(t, d.Record.Claimed)
}

func TestSubmit_AdapterErrorDoesNotMarkDone(t *testing.T) {
	// GIVEN: The submit request never reaches the server
	mem := store.NewMemory()
	adapter := &fakeAdapter{
		progress:  engine.ProgressRecord{ProgressCount: 24, TargetCount: 24},
		submitErr: fmt.Errorf("submit claim: %w", engine.ErrNetwork),
	}
	ev := engine.NewEvaluator(adapter, engine.NewCache(mem))

	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.Local)
	claim := testClaim("disc-monthly")

	_, _, err := ev.Submit(context.Background(), now, "emp-1", claim, engine.PeriodMonthly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrNetwork))

	// The outcome is unknown, so the claim must still look claimable.
	d := ev.Evaluate(context.Background(), now, "emp-1", claim, engine.PeriodMonthly, discDecide)
	assert.Equal(t, engine.StatusEligible, d.Status)
	assert.False(t, d.Record.Claimed)
}

func TestNewRequestID_DistinctPerAttempt(t *testing.T) {
	a := engine.NewRequestID("emp-1", time.Now())
	b := engine.NewRequestID("emp-1", time.Now().Add(time.Nanosecond))
	assert.NotEqual(t, a, b)
}
