package engine

import (
	"context"
	"time"
)

// =============================================================================
// SYNC ADAPTER - Contract to the authoritative backend
// =============================================================================

// SyncAdapter is the engine's only boundary: it fetches authoritative
// state and submits claims. Implementations fail with errors wrapping
// ErrNetwork or ErrServer; the evaluator falls back to cached state on
// either.
//
// SubmitClaim is NOT idempotent at this layer - at-most-one enforcement
// is the server's job. The client only prevents double submission by
// closing the claim locally once accepted, which is a UX guard, not a
// correctness guarantee.
type SyncAdapter interface {
	// FetchProgress returns the authoritative progress record for a
	// user, claim type, and period.
	FetchProgress(ctx context.Context, userID UserID, claim ClaimType, key PeriodKey) (ProgressRecord, error)

	// SubmitClaim posts a claim attempt. A nil error with
	// Accepted=false means the server declined (the reason is shown to
	// the user); a non-nil error means the outcome is unknown and the
	// claim must not be marked done locally.
	SubmitClaim(ctx context.Context, req ClaimRequest) (SubmitResult, error)

	// FetchWindow returns the eligibility window for a windowed claim
	// on a given date. The server is authoritative for prayer-time
	// windows: they depend on geolocation data the client does not
	// independently compute.
	FetchWindow(ctx context.Context, claim ClaimType, date time.Time) (EligibilityWindow, error)
}
