/*
Package engine provides the core claim eligibility engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for deciding
  whether a periodic claim action (a monthly streak bonus, a daily tidiness
  claim, a time-windowed photo claim, a point redemption) is currently
  allowed for a user, and for keeping locally cached progress from ever
  regressing when the authoritative server is momentarily stale or
  unreachable.

KEY CONCEPTS IN THIS FILE (types.go):
  - ProgressRecord: Accumulated progress toward a periodic goal
  - ClaimRequest: An immutable, user-initiated claim attempt
  - PeriodKey: Deterministic string identifying a day/week/month
  - Decision/Status: The tri-state outcome of an eligibility evaluation

DESIGN PRINCIPLES:
  1. Purity: Decisions are functions of (now, server state, cached state,
     config). The engine never reads the clock or performs I/O inside a rule.
  2. Monotonicity: Visible progress, claimed status, and broken status never
     regress, regardless of the arrival order of server responses.
  3. Server authority: The remote backend owns the authoritative record;
     the local copy is a read-mostly projection reconciled via merge.
  4. Explicit identity: Every call takes the user ID as a parameter;
     nothing reads ambient session state.

USAGE:
  key := engine.FormatPeriodKey(engine.PeriodMonthly, now)
  d := engine.DecideDiscipline(now, key, serverRec, cachedRec, cfg)
  if d.Status == engine.StatusEligible { ... }

SEE ALSO:
  - window.go: Time window and calendar utilities
  - merge.go:  Monotonic merge rule
  - rules.go:  Per-claim-type decision functions
  - cache.go:  Best-effort persisted progress cache
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RequestID string

// ClaimType identifies what kind of claim is being evaluated.
// This is an interface so domain packages define their own concrete types.
// The engine package has NO knowledge of specific claim types.
//
// Domain packages implement this:
//
//	// In claims/types.go
//	type Claim string
//	func (c Claim) ClaimID() string     { return string(c) }
//	func (c Claim) ClaimDomain() string { return "event" }
//	const ClaimTidinessDaily Claim = "tidy-daily"
type ClaimType interface {
	// ClaimID returns the unique identifier for this claim type.
	ClaimID() string

	// ClaimDomain returns which domain this claim belongs to.
	ClaimDomain() string
}

// =============================================================================
// PERIOD KEYS - Deterministic day/week/month discriminators
// =============================================================================

// PeriodKey identifies the period an eligibility decision applies to:
//
//	daily:2025-03-15
//	weekly:2025-03-10-2025-03-16
//	monthly:2025-03
//
// A PeriodKey is always derived from a timestamp and a PeriodKind;
// it is never user-supplied.
type PeriodKey string

type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// =============================================================================
// PROGRESS RECORD - Accumulated progress toward a periodic goal
// =============================================================================

// ProgressRecord is the unit of state the engine reasons about: how far a
// user has progressed toward a period's goal, whether the goal is still
// reachable, and whether the reward was already claimed.
//
// Invariants:
//   - ProgressCount >= 0
//   - Broken is one-way within a period: once true, never false again
//   - Claimed is one-way within a period: once true, never false again
type ProgressRecord struct {
	UserID        UserID
	PeriodKey     PeriodKey
	ProgressCount int
	TargetCount   int
	Broken        bool
	BrokenReason  string
	Claimed       bool
}

// ZeroRecord returns the cold-start record for a user and period:
// no progress, not broken, not claimed.
func ZeroRecord(userID UserID, key PeriodKey) ProgressRecord {
	return ProgressRecord{UserID: userID, PeriodKey: key}
}

// =============================================================================
// CLAIM REQUEST - An attempted claim, immutable once created
// =============================================================================

// ClaimRequest records a user-initiated claim submission. The server is
// the arbiter of its final approval state (pending/approved/rejected);
// the client never computes approval locally, it only displays it.
type ClaimRequest struct {
	ID          RequestID
	UserID      UserID
	Claim       ClaimType
	PeriodKey   PeriodKey
	SubmittedAt time.Time
}

// NewRequestID generates a claim request identifier.
func NewRequestID(userID UserID, at time.Time) RequestID {
	return RequestID(fmt.Sprintf("clm-%s-%d", userID, at.UnixNano()))
}

// SubmitResult is the adapter's view of a claim submission outcome.
// Accepted=false with a Reason means the server declined; the UI shows
// the reason when present, otherwise a generic retry prompt.
type SubmitResult struct {
	Accepted bool
	Reason   string
	Severity string // "warning" or "error" when provided by the server
}

// =============================================================================
// DECISION - Tri-state eligibility outcome
// =============================================================================

type Status string

const (
	// StatusNotYetEligible: the period is still open but the claim
	// condition does not hold yet.
	StatusNotYetEligible Status = "not_yet_eligible"

	// StatusEligible: the claim action is currently allowed.
	StatusEligible Status = "eligible"

	// StatusClosed: no further action is possible this period, either
	// because the reward was already claimed (or is pending server-side)
	// or because the goal became permanently unreachable (broken).
	StatusClosed Status = "closed"
)

// Decision is the result of evaluating a claim type for a user at a
// point in time. Record is the merged state the decision was based on;
// callers persist it back through the cache so progress never regresses.
type Decision struct {
	Status Status
	Record ProgressRecord

	// FromCache is true when the authoritative fetch failed and the
	// decision degraded to cached-only data. Display hint, not part of
	// the correctness contract.
	FromCache bool
}
