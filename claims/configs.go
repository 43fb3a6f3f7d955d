/*
configs.go - Pre-built claim rule configurations

PURPOSE:
  Provides ready-to-use rule configurations for each claim type and the
  adapters that turn them into engine.DecideFunc values. Screens (and
  the API layer) configure every claim type the same way:

    rs := claims.DefaultRuleset()
    decide := rs.Decider(claims.ClaimTidinessDaily, claims.DecideInput{})
    d := evaluator.Evaluate(ctx, now, userID, claim, claim.Period(), decide)

DEFAULTS:
  Discipline: 24 on-time workdays per month
  Redemption: 10 coins per point
  Zuhur:      12:00 + 20 minutes (fallback; server window wins)
  Ashar:      15:30 + 20 minutes (fallback; server window wins)

SEE ALSO:
  - engine/rules.go: The decision functions being configured
  - factory/: JSON claim catalog that overrides these defaults
*/
package claims

import (
	"time"

	"github.com/warp/claim-engine/engine"
)

// =============================================================================
// RULESET
// =============================================================================

// Ruleset holds the per-claim-type configuration in force.
type Ruleset struct {
	Discipline engine.DisciplineConfig
	Redemption engine.RedemptionConfig

	// Windows holds the fallback daily window per windowed claim type.
	// The server-fetched window, when available, takes precedence.
	Windows map[Claim]engine.EligibilityWindow
}

// DefaultRuleset returns the program's standard configuration.
func DefaultRuleset() Ruleset {
	return Ruleset{
		Discipline: engine.DisciplineConfig{TargetDays: engine.DefaultDisciplineTarget},
		Redemption: engine.RedemptionConfig{Divisor: 10},
		Windows: map[Claim]engine.EligibilityWindow{
			ClaimPrayerZuhur: {OpensAtMinute: 12 * 60, DurationMinutes: 20},
			ClaimPrayerAshar: {OpensAtMinute: 15*60 + 30, DurationMinutes: 20},
		},
	}
}

// Window returns the window in force for a windowed claim: the supplied
// server window when valid, otherwise the ruleset fallback.
func (rs Ruleset) Window(c Claim, server *engine.EligibilityWindow) engine.EligibilityWindow {
	if server != nil && server.Validate() == nil {
		return *server
	}
	return rs.Windows[c]
}

// =============================================================================
// DECIDER ADAPTERS
// =============================================================================

// DecideInput carries the per-evaluation inputs that are state, not
// configuration: the server window for windowed claims and the balance
// snapshot for redemption.
type DecideInput struct {
	Window     *engine.EligibilityWindow
	Redemption engine.RedemptionState
}

// Decider adapts a claim type's configuration into the shared
// engine.DecideFunc signature.
func (rs Ruleset) Decider(c Claim, in DecideInput) engine.DecideFunc {
	switch c {
	case ClaimDisciplineMonthly:
		cfg := rs.Discipline
		return func(now time.Time, key engine.PeriodKey, server, cached *engine.ProgressRecord) engine.Decision {
			return engine.DecideDiscipline(now, key, server, cached, cfg)
		}
	case ClaimTidinessDaily:
		return engine.DecideTidiness
	case ClaimPrayerZuhur, ClaimPrayerAshar:
		window := rs.Window(c, in.Window)
		return func(now time.Time, key engine.PeriodKey, server, cached *engine.ProgressRecord) engine.Decision {
			return engine.DecidePrayerWindow(now, key, server, cached, window)
		}
	case ClaimRedemption:
		cfg := rs.Redemption
		state := in.Redemption
		return func(now time.Time, key engine.PeriodKey, server, cached *engine.ProgressRecord) engine.Decision {
			return engine.DecideRedemption(now, key, server, cached, cfg, state)
		}
	default:
		// Unknown claim types never become eligible.
		return func(now time.Time, key engine.PeriodKey, server, cached *engine.ProgressRecord) engine.Decision {
			d := engine.DecideTidiness(now, key, server, cached)
			if d.Status == engine.StatusEligible {
				d.Status = engine.StatusNotYetEligible
			}
			return d
		}
	}
}
