/*
Package claims defines the concrete claim types of the gamified "event"
bonus program and their pre-built configurations.

PURPOSE:
  The engine package is claim-type agnostic; this package binds it to
  the four claim families the program actually runs:

  disc-monthly:   Monthly discipline streak - 24 on-time workdays in a
                  month earns a bonus claim. One late arrival or absence
                  breaks the month permanently.
  tidy-daily:     Daily tidiness ("kerapihan") claim - a supervisor
                  checks point-earning items; any checked item makes the
                  day claimable, once.
  prayer-zuhur /  Photo-proof claims tied to prayer-time windows. The
  prayer-ashar:   server is authoritative for the windows; the defaults
                  here are display fallbacks only.
  redeem-monthly: Point redemption - whole points are redeemed from a
                  coin balance (floor(coins/divisor)), subject to a
                  server-enforced monthly cap.

KEY DIFFERENCES BETWEEN CLAIM FAMILIES:
  1. Period: monthly (discipline, redemption) vs daily (tidiness, prayer)
  2. Gate: progress counter vs clock window vs balance arithmetic
  3. Brokenness: only the discipline streak can break; the others simply
     stay NotYetEligible until their condition holds

SEE ALSO:
  - configs.go: Pre-built rule configurations
  - engine/rules.go: The decision functions these types configure
*/
package claims

import (
	"github.com/warp/claim-engine/engine"
)

// =============================================================================
// CLAIM TYPES
// =============================================================================

// Claim is the concrete claim type for the event bonus domain.
// Implements the engine.ClaimType interface.
type Claim string

func (c Claim) ClaimID() string     { return string(c) }
func (c Claim) ClaimDomain() string { return "event" }

// Compile-time check that Claim implements engine.ClaimType
var _ engine.ClaimType = Claim("")

const (
	ClaimDisciplineMonthly Claim = "disc-monthly"
	ClaimTidinessDaily     Claim = "tidy-daily"
	ClaimPrayerZuhur       Claim = "prayer-zuhur"
	ClaimPrayerAshar       Claim = "prayer-ashar"
	ClaimRedemption        Claim = "redeem-monthly"
)

// All lists every claim type in the domain, in display order.
func All() []Claim {
	return []Claim{
		ClaimDisciplineMonthly,
		ClaimTidinessDaily,
		ClaimPrayerZuhur,
		ClaimPrayerAshar,
		ClaimRedemption,
	}
}

// Period returns the period kind a claim type's state is scoped to.
func (c Claim) Period() engine.PeriodKind {
	switch c {
	case ClaimDisciplineMonthly, ClaimRedemption:
		return engine.PeriodMonthly
	default:
		return engine.PeriodDaily
	}
}

// Windowed reports whether eligibility for this claim is gated by a
// daily clock window.
func (c Claim) Windowed() bool {
	return c == ClaimPrayerZuhur || c == ClaimPrayerAshar
}

// Known reports whether id names a claim type in this domain.
func Known(id string) (Claim, bool) {
	for _, c := range All() {
		if string(c) == id {
			return c, true
		}
	}
	return "", false
}
