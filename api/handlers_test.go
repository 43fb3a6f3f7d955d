package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/claim-engine/claims"
	"github.com/warp/claim-engine/remote"
	"github.com/warp/claim-engine/store/sqlite"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend serves the PHP backend's JSON contract from scripted state.
type fakeBackend struct {
	progressDays int
	targetDays   int
	claimed      bool
	acceptSubmit bool
	submitMsg    string
	windowsDown  bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/event/progress", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"progress_days": f.progressDays,
				"target_days":   f.targetDays,
				"claimed":       f.claimed,
			},
		})
	})
	mux.HandleFunc("/event/claim", func(w http.ResponseWriter, r *http.Request) {
		if f.acceptSubmit {
			f.claimed = true
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": f.acceptSubmit,
			"message": f.submitMsg,
		})
	})
	mux.HandleFunc("/event/windows", func(w http.ResponseWriter, r *http.Request) {
		if f.windowsDown {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"zuhur": map[string]any{"start": "12:04:00", "window_min": 20, "timezone": "Asia/Jakarta"},
				"ashar": map[string]any{"start": "15:21:00", "window_min": 20, "timezone": "Asia/Jakarta"},
			},
		})
	})
	mux.HandleFunc("/event/redemption", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"coin_balance": "97", "remaining_cap": "50000"},
		})
	})
	return mux
}

// newTestAPI wires a fake backend, an in-memory cache, and the router.
func newTestAPI(t *testing.T, backend *fakeBackend) (*Handler, *httptest.Server) {
	t.Helper()

	backendSrv := httptest.NewServer(backend.handler())
	t.Cleanup(backendSrv.Close)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, remote.New(backendSrv.URL), claims.DefaultRuleset())
	h.Now = func() time.Time {
		return time.Date(2025, time.March, 15, 12, 10, 0, 0, time.Local)
	}
	return h, backendSrv
}

func doJSON(t *testing.T, router http.Handler, method, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if out != nil && rr.Code < 500 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "body: %s", rr.Body.String())
	}
	return rr
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func TestGetEligibility_LiveBackend(t *testing.T) {
	// GIVEN: The backend reports a complete month
	h, _ := newTestAPI(t, &fakeBackend{progressDays: 24, targetDays: 24})
	router := NewRouter(h, nil)

	var dto EligibilityDTO
	rr := doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/eligibility", &dto)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "eligible", dto.Status)
	assert.Equal(t, "emp-1", dto.UserID)
	assert.Equal(t, "disc-monthly", dto.ClaimType)
	assert.Equal(t, "monthly:2025-03", dto.PeriodKey)
	assert.Equal(t, 24, dto.Progress)
	assert.False(t, dto.FromCache)
}

func TestGetEligibility_BackendOutageFallsBackToCache(t *testing.T) {
	// GIVEN: A first request primed the cache
	h, backendSrv := newTestAPI(t, &fakeBackend{progressDays: 24, targetDays: 24})
	router := NewRouter(h, nil)

	var first EligibilityDTO
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/eligibility", &first)
	require.Equal(t, "eligible", first.Status)

	// WHEN: The backend goes away
	backendSrv.Close()

	var second EligibilityDTO
	rr := doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/eligibility", &second)

	// THEN: Reads still succeed, flagged as cache-derived, no data lost
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "eligible", second.Status)
	assert.True(t, second.FromCache)
	assert.Equal(t, 24, second.Progress)
}

func TestGetEligibility_UnknownClaimType(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{})
	router := NewRouter(h, nil)

	rr := doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-weekly/eligibility", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListClaims_AllClaimTypes(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{progressDays: 1})
	router := NewRouter(h, nil)

	var out []EligibilityDTO
	rr := doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims", &out)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, out, len(claims.All()))

	byType := map[string]EligibilityDTO{}
	for _, d := range out {
		byType[d.ClaimType] = d
	}
	// 12:10 sits inside the backend's 12:04+20 zuhur window, outside ashar's.
	assert.Equal(t, "eligible", byType["prayer-zuhur"].Status)
	assert.Equal(t, "not_yet_eligible", byType["prayer-ashar"].Status)
	// One checked item makes the day claimable.
	assert.Equal(t, "eligible", byType["tidy-daily"].Status)
	// 97 coins / 10 with cap room.
	assert.Equal(t, "eligible", byType["redeem-monthly"].Status)
	// 1 of 24 days.
	assert.Equal(t, "not_yet_eligible", byType["disc-monthly"].Status)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmitClaim_AcceptedJournaledAndClosed(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{progressDays: 1, acceptSubmit: true})
	router := NewRouter(h, nil)

	var res SubmitResultDTO
	rr := doJSON(t, router, http.MethodPost, "/api/users/emp-1/claims/tidy-daily", &res)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, res.Accepted)
	assert.NotEmpty(t, res.RequestID)
	require.NotNil(t, res.Decision)
	assert.Equal(t, "closed", res.Decision.Status)
	assert.True(t, res.Decision.Claimed)

	// The journal remembers the submission
	var requests []ClaimRequestDTO
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/requests", &requests)
	require.Len(t, requests, 1)
	assert.Equal(t, res.RequestID, requests[0].ID)
	assert.Equal(t, "tidy-daily", requests[0].ClaimType)
	assert.Equal(t, "daily:2025-03-15", requests[0].PeriodKey)
	assert.Equal(t, "pending", requests[0].Status)
}

func TestSubmitClaim_SecondAttemptConflicts(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{progressDays: 1, acceptSubmit: true})
	router := NewRouter(h, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/users/emp-1/claims/tidy-daily", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// WHEN: Submitting again for the same period
	var res SubmitResultDTO
	rr = doJSON(t, router, http.MethodPost, "/api/users/emp-1/claims/tidy-daily", &res)

	// THEN: The journal-based guard short-circuits before the backend
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.False(t, res.Accepted)
	assert.Equal(t, "warning", res.Severity)
}

func TestSubmitClaim_DeclinedPassesReasonThrough(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{progressDays: 1, acceptSubmit: false, submitMsg: "sudah diklaim hari ini"})
	router := NewRouter(h, nil)

	var res SubmitResultDTO
	rr := doJSON(t, router, http.MethodPost, "/api/users/emp-1/claims/tidy-daily", &res)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, res.Accepted)
	assert.Equal(t, "sudah diklaim hari ini", res.Message)

	// Declined submissions are not journaled
	var requests []ClaimRequestDTO
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/requests", &requests)
	assert.Empty(t, requests)
}

func TestSubmitClaim_BackendDownIs502(t *testing.T) {
	h, backendSrv := newTestAPI(t, &fakeBackend{progressDays: 1})
	router := NewRouter(h, nil)
	backendSrv.Close()

	rr := doJSON(t, router, http.MethodPost, "/api/users/emp-1/claims/tidy-daily", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	// Outcome unknown: nothing journaled, period still open locally
	var requests []ClaimRequestDTO
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/requests", &requests)
	assert.Empty(t, requests)
}

// =============================================================================
// PROGRESS AND WINDOWS
// =============================================================================

func TestGetProgress_ReturnsCachedRecord(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{progressDays: 18, targetDays: 24})
	router := NewRouter(h, nil)

	// Prime the cache through an eligibility read.
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/eligibility", nil)

	var dto ProgressDTO
	rr := doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/progress", &dto)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "monthly:2025-03", dto.PeriodKey)
	assert.Equal(t, 18, dto.Progress)
	assert.Equal(t, 24, dto.Target)
}

func TestGetProgress_ColdCacheIsZeroRecord(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{})
	router := NewRouter(h, nil)

	var dto ProgressDTO
	rr := doJSON(t, router, http.MethodGet, "/api/users/emp-9/claims/tidy-daily/progress", &dto)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "daily:2025-03-15", dto.PeriodKey)
	assert.Equal(t, 0, dto.Progress)
	assert.False(t, dto.Claimed)
}

func TestGetWindow_BackendAndFallback(t *testing.T) {
	backend := &fakeBackend{}
	h, _ := newTestAPI(t, backend)
	router := NewRouter(h, nil)

	var dto WindowDTO
	rr := doJSON(t, router, http.MethodGet, "/api/windows?claim=prayer-zuhur&date=2025-03-15", &dto)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "12:04", dto.OpensAt)
	assert.Equal(t, 20, dto.DurationMinutes)
	assert.Equal(t, "Asia/Jakarta", dto.Timezone)
	assert.False(t, dto.FromFallback)

	// WHEN: The windows endpoint fails
	backend.windowsDown = true
	rr = doJSON(t, router, http.MethodGet, "/api/windows?claim=prayer-zuhur", &dto)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "12:00", dto.OpensAt)
	assert.True(t, dto.FromFallback)
}

func TestGetWindow_Validation(t *testing.T) {
	h, _ := newTestAPI(t, &fakeBackend{})
	router := NewRouter(h, nil)

	rr := doJSON(t, router, http.MethodGet, "/api/windows?claim=tidy-daily", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "non-windowed claim")

	rr = doJSON(t, router, http.MethodGet, "/api/windows?claim=prayer-zuhur&date=15-03-2025", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "bad date format")
}

// =============================================================================
// REFRESHER
// =============================================================================

func TestRefresher_TracksAndMerges(t *testing.T) {
	backend := &fakeBackend{progressDays: 10, targetDays: 24}
	h, _ := newTestAPI(t, backend)

	refresher := NewRefresher(h.Store, h.Backend)
	refresher.Enabled = false // no background loop in tests
	refresher.Now = h.Now
	router := NewRouter(h, refresher)

	// GIVEN: A user seen by the API layer
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/eligibility", nil)

	// WHEN: Progress advances server-side and a refresh pass runs
	backend.progressDays = 12
	rr := doJSON(t, router, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)

	// THEN: The cache reflects the newer count
	var dto ProgressDTO
	doJSON(t, router, http.MethodGet, "/api/users/emp-1/claims/disc-monthly/progress", &dto)
	assert.Equal(t, 12, dto.Progress)
}
