/*
handlers.go - HTTP handlers for the claim eligibility service

PURPOSE:
  Exposes the eligibility engine to the mobile client. Handlers own the
  impure edges - resolving windows and redemption state from the
  backend, journaling submissions - and delegate every decision to the
  pure rule set.

ENDPOINTS:
  Claims:
    GET  /api/users/{id}/claims                      Eligibility for all claim types
    GET  /api/users/{id}/claims/{type}/eligibility   Eligibility for one claim type
    GET  /api/users/{id}/claims/{type}/progress      Cached progress record
    POST /api/users/{id}/claims/{type}               Submit a claim

  Requests:
    GET  /api/users/{id}/requests                    Local claim journal

  Windows:
    GET  /api/windows?claim={type}&date=YYYY-MM-DD   Prayer-slot window

  Admin:
    POST /api/refresh                                Run a refresher pass now

ERROR HANDLING:
  Eligibility reads never fail outward: a backend outage degrades to
  cached-only decisions with from_cache=true. Submissions do surface
  adapter errors (502) because the outcome is unknown and must not be
  shown as done.

SEE ALSO:
  - dto.go: Request/response data structures
  - refresher.go: Background progress polling
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/claim-engine/claims"
	"github.com/warp/claim-engine/engine"
	"github.com/warp/claim-engine/remote"
	"github.com/warp/claim-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Backend *remote.Client
	Ruleset claims.Ruleset

	evaluator *engine.Evaluator

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewHandler creates a new handler wired to the device cache and backend.
func NewHandler(store *sqlite.Store, backend *remote.Client, rs claims.Ruleset) *Handler {
	return &Handler{
		Store:     store,
		Backend:   backend,
		Ruleset:   rs,
		evaluator: engine.NewEvaluator(backend, engine.NewCache(store)),
		Now:       time.Now,
	}
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// ListClaims returns the current decision for every claim type.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	now := h.Now()

	var out []EligibilityDTO
	for _, claim := range claims.All() {
		d := h.evaluate(r.Context(), now, userID, claim)
		out = append(out, eligibilityDTO(userID, claim.ClaimID(), d))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEligibility returns the current decision for one claim type.
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	claim, ok := claims.Known(chi.URLParam(r, "type"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown claim type")
		return
	}

	d := h.evaluate(r.Context(), h.Now(), userID, claim)
	writeJSON(w, http.StatusOK, eligibilityDTO(userID, claim.ClaimID(), d))
}

// evaluate resolves the claim's per-evaluation inputs and runs the
// fetch/merge/decide flow.
func (h *Handler) evaluate(ctx context.Context, now time.Time, userID engine.UserID, claim claims.Claim) engine.Decision {
	in := claims.DecideInput{}

	if claim.Windowed() {
		if window, err := h.Backend.FetchWindow(ctx, claim, now); err == nil {
			in.Window = &window
		} else {
			log.Printf("[api] window fetch for %s failed, using fallback: %v", claim.ClaimID(), err)
		}
	}

	if claim == claims.ClaimRedemption {
		key := engine.FormatPeriodKey(claim.Period(), now)
		if state, err := h.Backend.FetchRedemption(ctx, userID, key); err == nil {
			in.Redemption = state
		} else {
			// Zero state: not eligible, but the cached record still renders.
			log.Printf("[api] redemption state fetch for %s failed: %v", userID, err)
		}
	}

	return h.evaluator.Evaluate(ctx, now, userID, claim, claim.Period(), h.Ruleset.Decider(claim, in))
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitClaim posts a claim for the current period.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	claim, ok := claims.Known(chi.URLParam(r, "type"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown claim type")
		return
	}
	now := h.Now()

	// UX guard only: the server is the at-most-one enforcement point.
	key := engine.FormatPeriodKey(claim.Period(), now)
	if open, err := h.Store.HasOpenClaim(r.Context(), userID, claim.ClaimID(), key); err == nil && open {
		writeJSON(w, http.StatusConflict, SubmitResultDTO{
			Accepted: false,
			Message:  "a claim for this period is already pending",
			Severity: "warning",
		})
		return
	}

	req, res, err := h.evaluator.Submit(r.Context(), now, userID, claim, claim.Period())
	if err != nil {
		// Outcome unknown: never mark done, let the client retry.
		writeError(w, http.StatusBadGateway, "claim submission failed, please retry")
		return
	}

	if res.Accepted {
		if err := h.Store.SaveClaimRequest(r.Context(), req); err != nil {
			log.Printf("[api] journaling claim %s failed: %v", req.ID, err)
		}
	}

	d := h.evaluate(r.Context(), now, userID, claim)
	dto := eligibilityDTO(userID, claim.ClaimID(), d)
	writeJSON(w, http.StatusOK, SubmitResultDTO{
		RequestID: string(req.ID),
		Accepted:  res.Accepted,
		Message:   res.Reason,
		Severity:  res.Severity,
		Decision:  &dto,
	})
}

// =============================================================================
// PROGRESS / JOURNAL / WINDOWS
// =============================================================================

// GetProgress returns the cached progress record for one claim type.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	claim, ok := claims.Known(chi.URLParam(r, "type"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown claim type")
		return
	}

	key := engine.FormatPeriodKey(claim.Period(), h.Now())
	cache := engine.NewCache(h.Store)
	rec, found := cache.Get(r.Context(), userID, claim, key)
	if !found {
		rec = engine.ZeroRecord(userID, key)
	}
	writeJSON(w, http.StatusOK, progressDTO(rec))
}

// ListRequests returns the user's journaled claim submissions.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	records, err := h.Store.GetClaimsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read claim journal")
		return
	}

	out := make([]ClaimRequestDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, ClaimRequestDTO{
			ID:          rec.ID,
			ClaimType:   rec.ClaimType,
			PeriodKey:   rec.PeriodKey,
			SubmittedAt: rec.SubmittedAt.Format(time.RFC3339),
			Status:      rec.Status,
			Reason:      rec.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetWindow returns the daily window for a windowed claim type, falling
// back to the configured default when the backend is unreachable.
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	claim, ok := claims.Known(r.URL.Query().Get("claim"))
	if !ok || !claim.Windowed() {
		writeError(w, http.StatusBadRequest, "claim must name a windowed claim type")
		return
	}

	date := h.Now()
	if ds := r.URL.Query().Get("date"); ds != "" {
		parsed, err := time.ParseInLocation("2006-01-02", ds, date.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	fromFallback := false
	window, err := h.Backend.FetchWindow(r.Context(), claim, date)
	if err != nil {
		window = h.Ruleset.Windows[claim]
		fromFallback = true
	}

	writeJSON(w, http.StatusOK, WindowDTO{
		ClaimType:       claim.ClaimID(),
		OpensAt:         minuteToClock(window.OpensAtMinute),
		DurationMinutes: window.DurationMinutes,
		Timezone:        window.Timezone,
		FromFallback:    fromFallback,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func minuteToClock(m int) string {
	if m < 0 {
		m = 0
	}
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encoding response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}
