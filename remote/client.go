/*
client.go - HTTP implementation of the engine's sync adapter

PURPOSE:
  Realizes engine.SyncAdapter as JSON-over-HTTP calls to the PHP
  backend. This is the engine's only boundary; everything behind it is
  specified purely by the JSON contract in dto.go.

ERROR MAPPING:
  transport failure / timeout  -> wraps engine.ErrNetwork
  non-2xx status               -> *engine.ServerError (wraps ErrServer)
  success=false envelope       -> *engine.ServerError for reads;
                                  a declined SubmitResult for submits
                                  (a decline is an outcome, not an error)

TIMEOUTS:
  The caller supplies the timeout via the injected http.Client (6-8s
  recommended) or a request context. On timeout the evaluator falls
  back to cached state.

SEE ALSO:
  - engine/remote.go: The contract being implemented
  - engine/evaluator.go: The cache-fallback caller
*/
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/claim-engine/engine"
)

// DefaultTimeout is the recommended round-trip budget for backend calls.
const DefaultTimeout = 8 * time.Second

// Client talks to the PHP event backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// AuthToken, when set, is sent as a bearer token.
	AuthToken string
}

// New creates a client for the given backend base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Compile-time check that Client implements engine.SyncAdapter
var _ engine.SyncAdapter = (*Client)(nil)

// =============================================================================
// SYNC ADAPTER IMPLEMENTATION
// =============================================================================

// FetchProgress returns the authoritative progress record.
func (c *Client) FetchProgress(ctx context.Context, userID engine.UserID, claim engine.ClaimType, key engine.PeriodKey) (engine.ProgressRecord, error) {
	q := url.Values{}
	q.Set("user_id", string(userID))
	q.Set("claim_type", claim.ClaimID())
	q.Set("period_key", string(key))

	var resp progressResponse
	if err := c.getJSON(ctx, "/event/progress", q, &resp); err != nil {
		return engine.ProgressRecord{}, err
	}
	if !resp.Success {
		return engine.ProgressRecord{}, &engine.ServerError{Code: http.StatusOK, Message: resp.Message}
	}

	rec := engine.ProgressRecord{
		UserID:        userID,
		PeriodKey:     key,
		ProgressCount: resp.Data.ProgressDays,
		TargetCount:   resp.Data.TargetDays,
		Broken:        resp.Data.Broken,
		// A pending claim blocks this period exactly like a completed one.
		Claimed: resp.Data.Claimed || resp.Data.Pending,
	}
	if resp.Data.Reason != nil {
		rec.BrokenReason = *resp.Data.Reason
	}
	return rec, nil
}

// SubmitClaim posts a claim attempt. A declined claim is returned as an
// unaccepted result with the server's message; only transport and
// server failures are errors.
func (c *Client) SubmitClaim(ctx context.Context, req engine.ClaimRequest) (engine.SubmitResult, error) {
	body := submitBody{
		RequestID:   string(req.ID),
		UserID:      string(req.UserID),
		ClaimType:   req.Claim.ClaimID(),
		PeriodKey:   string(req.PeriodKey),
		SubmittedAt: req.SubmittedAt.Format(time.RFC3339),
	}

	var resp submitResponse
	if err := c.postJSON(ctx, "/event/claim", body, &resp); err != nil {
		return engine.SubmitResult{}, err
	}

	return engine.SubmitResult{
		Accepted: resp.Success,
		Reason:   resp.Message,
		Severity: resp.Severity,
	}, nil
}

// FetchWindow returns the backend-computed window for a prayer slot.
func (c *Client) FetchWindow(ctx context.Context, claim engine.ClaimType, date time.Time) (engine.EligibilityWindow, error) {
	q := url.Values{}
	q.Set("date", date.Format("2006-01-02"))

	var resp windowResponse
	if err := c.getJSON(ctx, "/event/windows", q, &resp); err != nil {
		return engine.EligibilityWindow{}, err
	}
	if !resp.Success {
		return engine.EligibilityWindow{}, &engine.ServerError{Code: http.StatusOK, Message: resp.Message}
	}

	var slot *slotWindow
	switch claim.ClaimID() {
	case "prayer-zuhur":
		slot = resp.Data.Zuhur
	case "prayer-ashar":
		slot = resp.Data.Ashar
	}
	if slot == nil {
		return engine.EligibilityWindow{}, &engine.ServerError{Code: http.StatusOK, Message: fmt.Sprintf("no window for claim %s", claim.ClaimID())}
	}

	opens, err := engine.ParseMinuteOfDay(slot.Start)
	if err != nil {
		return engine.EligibilityWindow{}, err
	}
	w := engine.EligibilityWindow{
		OpensAtMinute:   opens,
		DurationMinutes: slot.WindowMin,
		Timezone:        slot.Timezone,
	}
	if err := w.Validate(); err != nil {
		return engine.EligibilityWindow{}, err
	}
	return w, nil
}

// FetchRedemption returns the coin balance and remaining monthly cap.
// Not part of the core SyncAdapter contract; the cap is server-enforced
// and mirrored here for display and gating.
func (c *Client) FetchRedemption(ctx context.Context, userID engine.UserID, key engine.PeriodKey) (engine.RedemptionState, error) {
	q := url.Values{}
	q.Set("user_id", string(userID))
	q.Set("period_key", string(key))

	var resp redemptionResponse
	if err := c.getJSON(ctx, "/event/redemption", q, &resp); err != nil {
		return engine.RedemptionState{}, err
	}
	if !resp.Success {
		return engine.RedemptionState{}, &engine.ServerError{Code: http.StatusOK, Message: resp.Message}
	}
	return engine.RedemptionState{
		CoinBalance:  resp.Data.CoinBalance,
		RemainingCap: resp.Data.RemainingCap,
	}, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNetwork, err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNetwork, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &engine.ServerError{Code: resp.StatusCode, Message: serverMessage(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &engine.ServerError{Code: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

// serverMessage pulls a message out of an error body when there is one.
func serverMessage(data []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &env) == nil {
		return env.Message
	}
	return ""
}
