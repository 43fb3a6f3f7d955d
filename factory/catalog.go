/*
Package factory provides JSON to Go claim-catalog conversion.

PURPOSE:
  Converts a JSON claim catalog into a claims.Ruleset. This enables
  claim configuration without code changes - the backend (or an ops
  file checked into the deployment) can adjust targets, divisors, and
  fallback windows, and the factory produces the proper Go structs.

JSON SCHEMA:
  {
    "claims": [
      {"type": "disc-monthly", "target_days": 24},
      {"type": "tidy-daily"},
      {"type": "prayer-zuhur", "window": {"start": "12:00:00", "window_min": 20}},
      {"type": "prayer-ashar", "window": {"start": "15:30:00", "window_min": 20}},
      {"type": "redeem-monthly", "divisor": 10}
    ]
  }

KEY FEATURES:
  - Unknown claim types are rejected (a typo must not silently produce
    an unconfigured claim)
  - Windows are validated: a window that would cross midnight is a
    configuration error, not a wrap-around
  - Omitted entries keep their defaults from claims.DefaultRuleset()

USAGE:
  rs, err := factory.ParseCatalog(jsonBytes)

SEE ALSO:
  - claims/configs.go: The Ruleset being populated
  - engine/window.go: Clock-string parsing and window validation
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/claim-engine/claims"
	"github.com/warp/claim-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of the claim catalog.
type CatalogJSON struct {
	Claims []ClaimJSON `json:"claims"`
}

// ClaimJSON configures one claim type.
type ClaimJSON struct {
	Type       string      `json:"type"`
	TargetDays int         `json:"target_days,omitempty"`
	Divisor    int64       `json:"divisor,omitempty"`
	Window     *WindowJSON `json:"window,omitempty"`
}

// WindowJSON is a daily window as the backend expresses it: an opening
// clock time plus a duration in minutes.
type WindowJSON struct {
	Start     string `json:"start"` // "HH:MM" or "HH:MM:SS"
	WindowMin int    `json:"window_min"`
	Timezone  string `json:"timezone,omitempty"`
}

// =============================================================================
// CATALOG PARSING
// =============================================================================

// ParseCatalog builds a Ruleset from catalog JSON, starting from the
// default ruleset and overriding the entries present.
func ParseCatalog(data []byte) (claims.Ruleset, error) {
	rs := claims.DefaultRuleset()

	var catalog CatalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return rs, fmt.Errorf("invalid claim catalog: %w", err)
	}

	for _, entry := range catalog.Claims {
		claim, ok := claims.Known(entry.Type)
		if !ok {
			return rs, fmt.Errorf("unknown claim type %q", entry.Type)
		}

		switch claim {
		case claims.ClaimDisciplineMonthly:
			if entry.TargetDays > 0 {
				rs.Discipline.TargetDays = entry.TargetDays
			}
		case claims.ClaimRedemption:
			if entry.Divisor > 0 {
				rs.Redemption.Divisor = entry.Divisor
			}
		}

		if entry.Window != nil {
			if !claim.Windowed() {
				return rs, fmt.Errorf("claim type %q does not take a window", entry.Type)
			}
			w, err := ParseWindow(*entry.Window)
			if err != nil {
				return rs, fmt.Errorf("claim type %q: %w", entry.Type, err)
			}
			rs.Windows[claim] = w
		}
	}

	return rs, nil
}

// ParseWindow converts a WindowJSON into a validated EligibilityWindow.
func ParseWindow(w WindowJSON) (engine.EligibilityWindow, error) {
	opens, err := engine.ParseMinuteOfDay(w.Start)
	if err != nil {
		return engine.EligibilityWindow{}, err
	}
	window := engine.EligibilityWindow{
		OpensAtMinute:   opens,
		DurationMinutes: w.WindowMin,
		Timezone:        w.Timezone,
	}
	if err := window.Validate(); err != nil {
		return engine.EligibilityWindow{}, fmt.Errorf("window starting %s for %d min: %w", w.Start, w.WindowMin, err)
	}
	return window, nil
}
