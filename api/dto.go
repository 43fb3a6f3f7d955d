/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures served to the mobile client. These types
  decouple the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/claim-engine/engine"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EligibilityDTO is the decision for one claim type, as rendered by a
// claim screen.
type EligibilityDTO struct {
	UserID       string `json:"user_id"`
	ClaimType    string `json:"claim_type"`
	PeriodKey    string `json:"period_key"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Target       int    `json:"target,omitempty"`
	Broken       bool   `json:"broken"`
	BrokenReason string `json:"broken_reason,omitempty"`
	Claimed      bool   `json:"claimed"`
	FromCache    bool   `json:"from_cache"`
}

// SubmitResultDTO is the outcome of a claim submission.
type SubmitResultDTO struct {
	RequestID string          `json:"request_id"`
	Accepted  bool            `json:"accepted"`
	Message   string          `json:"message,omitempty"`
	Severity  string          `json:"severity,omitempty"`
	Decision  *EligibilityDTO `json:"decision,omitempty"`
}

// WindowDTO is a daily eligibility window.
type WindowDTO struct {
	ClaimType       string `json:"claim_type"`
	OpensAt         string `json:"opens_at"` // "HH:MM"
	DurationMinutes int    `json:"duration_minutes"`
	Timezone        string `json:"timezone,omitempty"`
	FromFallback    bool   `json:"from_fallback"`
}

// ClaimRequestDTO is a journaled claim submission.
type ClaimRequestDTO struct {
	ID          string `json:"id"`
	ClaimType   string `json:"claim_type"`
	PeriodKey   string `json:"period_key"`
	SubmittedAt string `json:"submitted_at"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// ProgressDTO is the cached progress record for one claim and period.
type ProgressDTO struct {
	PeriodKey    string `json:"period_key"`
	Progress     int    `json:"progress"`
	Target       int    `json:"target,omitempty"`
	Broken       bool   `json:"broken"`
	BrokenReason string `json:"broken_reason,omitempty"`
	Claimed      bool   `json:"claimed"`
}

// ErrorDTO is the uniform error body.
type ErrorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// DTO CONSTRUCTORS
// =============================================================================

func eligibilityDTO(userID engine.UserID, claimType string, d engine.Decision) EligibilityDTO {
	return EligibilityDTO{
		UserID:       string(userID),
		ClaimType:    claimType,
		PeriodKey:    string(d.Record.PeriodKey),
		Status:       string(d.Status),
		Progress:     d.Record.ProgressCount,
		Target:       d.Record.TargetCount,
		Broken:       d.Record.Broken,
		BrokenReason: d.Record.BrokenReason,
		Claimed:      d.Record.Claimed,
		FromCache:    d.FromCache,
	}
}

func progressDTO(rec engine.ProgressRecord) ProgressDTO {
	return ProgressDTO{
		PeriodKey:    string(rec.PeriodKey),
		Progress:     rec.ProgressCount,
		Target:       rec.TargetCount,
		Broken:       rec.Broken,
		BrokenReason: rec.BrokenReason,
		Claimed:      rec.Claimed,
	}
}
