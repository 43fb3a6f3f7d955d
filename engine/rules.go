/*
rules.go - Per-claim-type eligibility decision functions

PURPOSE:
  One pure decision function per claim type, all sharing the same shape:

    1. Merge server and cached records (monotonic merge); synthesize a
       zero record when neither is present.
    2. Claimed (or pending server-side)  -> Closed
    3. Broken                            -> Closed
    4. Type-specific condition holds     -> Eligible
    5. Otherwise                         -> NotYetEligible

  Brokenness is an absorbing state for the period: a record reported
  broken with progress still below target is never eligible, no matter
  how close to target. A claim pending admin approval is treated
  identically to claimed - one claim per claim type per period.

  These functions never return an error. They take `now` explicitly and
  perform no I/O, which makes them the property-testing surface of the
  engine.

SEE ALSO:
  - merge.go:     Step 1
  - evaluator.go: Fetch/fallback orchestration around these functions
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// DecideFunc is the shared signature every claim type implements.
// server and cached may each be nil (absent).
type DecideFunc func(now time.Time, key PeriodKey, server, cached *ProgressRecord) Decision

// closedStatus applies steps 2-3 of the shared shape.
func closedStatus(rec ProgressRecord) (Status, bool) {
	if rec.Claimed {
		return StatusClosed, true
	}
	if rec.Broken {
		return StatusClosed, true
	}
	return "", false
}

// =============================================================================
// MONTHLY DISCIPLINE STREAK
// =============================================================================

// DisciplineConfig configures the monthly on-time streak claim.
type DisciplineConfig struct {
	// TargetDays is the number of on-time workdays required in the
	// month. Used when the server does not report a target.
	TargetDays int
}

// DefaultDisciplineTarget is the standard monthly on-time workday goal.
const DefaultDisciplineTarget = 24

// DecideDiscipline evaluates the monthly discipline streak: eligible
// once progress reaches the target, provided the claim month is still
// the current month and the streak was never broken.
func DecideDiscipline(now time.Time, key PeriodKey, server, cached *ProgressRecord, cfg DisciplineConfig) Decision {
	rec := resolve(rec0(server, cached), key, server, cached)
	if st, done := closedStatus(rec); done {
		return Decision{Status: st, Record: rec}
	}

	target := rec.TargetCount
	if target <= 0 {
		target = cfg.TargetDays
	}
	if target <= 0 {
		target = DefaultDisciplineTarget
	}

	// The claim is only open while the month the key names is current:
	// after rollover the period is gone, not claimable retroactively.
	inMonth := FormatPeriodKey(PeriodMonthly, now) == key

	if inMonth && rec.ProgressCount >= target {
		return Decision{Status: StatusEligible, Record: rec}
	}
	return Decision{Status: StatusNotYetEligible, Record: rec}
}

// =============================================================================
// DAILY TIDINESS
// =============================================================================

// DecideTidiness evaluates the daily tidiness claim: eligible once at
// least one point-earning item was checked by a supervisor today and
// the day's claim has not been taken.
func DecideTidiness(now time.Time, key PeriodKey, server, cached *ProgressRecord) Decision {
	rec := resolve(rec0(server, cached), key, server, cached)
	if st, done := closedStatus(rec); done {
		return Decision{Status: st, Record: rec}
	}
	if rec.ProgressCount > 0 {
		return Decision{Status: StatusEligible, Record: rec}
	}
	return Decision{Status: StatusNotYetEligible, Record: rec}
}

// =============================================================================
// PRAYER-WINDOW PHOTO CLAIM
// =============================================================================

// DecidePrayerWindow evaluates the photo-proof claim for one prayer
// slot: eligible only while now falls inside the slot's daily window.
// Each slot (zuhur, ashar) carries its own window and its own period
// state, so claiming one never closes the other.
func DecidePrayerWindow(now time.Time, key PeriodKey, server, cached *ProgressRecord, window EligibilityWindow) Decision {
	rec := resolve(rec0(server, cached), key, server, cached)
	if st, done := closedStatus(rec); done {
		return Decision{Status: st, Record: rec}
	}
	if WithinWindow(now, window) {
		return Decision{Status: StatusEligible, Record: rec}
	}
	return Decision{Status: StatusNotYetEligible, Record: rec}
}

// =============================================================================
// POINT REDEMPTION
// =============================================================================

// RedemptionConfig configures monthly point redemption.
type RedemptionConfig struct {
	// Divisor converts coins to redeemable points: points = floor(coins / Divisor).
	Divisor int64
}

// RedemptionState is the server-reported balance snapshot redemption
// decisions are made against. RemainingCap mirrors the server-enforced
// monthly redeemed-amount cap; the client uses it for display and
// gating only, never as the enforcement point.
type RedemptionState struct {
	CoinBalance  decimal.Decimal
	RemainingCap decimal.Decimal
}

// RedeemablePoints returns the whole number of points a coin balance is
// worth: floor(coins / divisor). 97 coins at divisor 10 is 9 points,
// never 9.7 or 10.
func RedeemablePoints(coins decimal.Decimal, divisor int64) int64 {
	if divisor <= 0 {
		return 0
	}
	return coins.Div(decimal.NewFromInt(divisor)).Floor().IntPart()
}

// DecideRedemption evaluates monthly point redemption: eligible when at
// least one whole point is redeemable and the reported monthly cap has
// room left.
func DecideRedemption(now time.Time, key PeriodKey, server, cached *ProgressRecord, cfg RedemptionConfig, state RedemptionState) Decision {
	rec := resolve(rec0(server, cached), key, server, cached)
	if st, done := closedStatus(rec); done {
		return Decision{Status: st, Record: rec}
	}
	if RedeemablePoints(state.CoinBalance, cfg.Divisor) > 0 && state.RemainingCap.IsPositive() {
		return Decision{Status: StatusEligible, Record: rec}
	}
	return Decision{Status: StatusNotYetEligible, Record: rec}
}

// rec0 picks a user ID for zero-record synthesis from whichever side is
// present.
func rec0(server, cached *ProgressRecord) UserID {
	if server != nil {
		return server.UserID
	}
	if cached != nil {
		return cached.UserID
	}
	return ""
}
