/*
dto.go - Wire shapes of the PHP backend's JSON contract

PURPOSE:
  Decouples the engine's domain model from the backend's JSON. The
  backend is known to omit fields: every numeric field decodes to 0 and
  every boolean to false when missing, which the engine's zero-record
  semantics already handle.

SHAPES:
  Progress fetch:
    {"success": true,
     "data": {"progress_days": 20, "target_days": 24, "broken": false,
              "reason": null, "claimed": false},
     "meta": {"cutoff": "08:15:00", "workdays": ["mon", ...]}}

  Claim submit:
    {"success": false, "message": "already claimed", "severity": "warning"}

  Window fetch:
    {"success": true,
     "data": {"zuhur": {"start": "12:04:00", "window_min": 20},
              "ashar": {"start": "15:21:00", "window_min": 20}}}

  Redemption state:
    {"success": true,
     "data": {"coin_balance": "9750", "remaining_cap": "50000"}}

SEE ALSO:
  - client.go: The HTTP calls producing these
*/
package remote

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESPONSE ENVELOPES
// =============================================================================

type progressResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    progressData `json:"data"`
	Meta    progressMeta `json:"meta"`
}

type progressData struct {
	ProgressDays int     `json:"progress_days"`
	TargetDays   int     `json:"target_days"`
	Broken       bool    `json:"broken"`
	Reason       *string `json:"reason"`
	Claimed      bool    `json:"claimed"`

	// Pending means a claim for this period is awaiting admin approval.
	// For eligibility it is identical to claimed: one claim per period.
	Pending bool `json:"pending"`
}

type progressMeta struct {
	Cutoff   string   `json:"cutoff"`
	Workdays []string `json:"workdays"`
}

type submitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type windowResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    windowData `json:"data"`
}

type windowData struct {
	Zuhur *slotWindow `json:"zuhur"`
	Ashar *slotWindow `json:"ashar"`
}

type slotWindow struct {
	Start     string `json:"start"`
	WindowMin int    `json:"window_min"`
	Timezone  string `json:"timezone"`
}

type redemptionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    redemptionData `json:"data"`
}

type redemptionData struct {
	CoinBalance  decimal.Decimal `json:"coin_balance"`
	RemainingCap decimal.Decimal `json:"remaining_cap"`
}

// =============================================================================
// REQUEST BODIES
// =============================================================================

type submitBody struct {
	RequestID   string `json:"request_id"`
	UserID      string `json:"user_id"`
	ClaimType   string `json:"claim_type"`
	PeriodKey   string `json:"period_key"`
	SubmittedAt string `json:"submitted_at"`
}
