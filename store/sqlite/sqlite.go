/*
Package sqlite provides the SQLite-backed device cache.

PURPOSE:
  Implements engine.ProgressStore for on-device persistence of the
  progress cache, plus a small local journal of submitted claim
  requests so "pending" survives app restarts.

KEY TABLES:
  progress_cache: One row per (user_id, cache_key). cache_key is the
                  namespaced "ev:<claim>:<period>" key; rows for rolled-
                  over periods become unreachable rather than purged.
  claim_requests: Immutable log of submitted claims. The request row is
                  never edited; only the server-reported status column
                  is updated as approvals come back.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; a poll timer and a manual
  refresh writing the same row race harmlessly because callers only
  write merge results.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/eventcache.db")
  cache := engine.NewCache(store)

SEE ALSO:
  - engine/cache.go: Interface definition and failure semantics
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/claim-engine/engine"
)

// Store implements engine.ProgressStore and the local claim journal.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Progress cache (one row per user and namespaced period key)
	CREATE TABLE IF NOT EXISTS progress_cache (
		user_id TEXT NOT NULL,
		cache_key TEXT NOT NULL,
		period_key TEXT NOT NULL,
		progress_count INTEGER NOT NULL DEFAULT 0,
		target_count INTEGER NOT NULL DEFAULT 0,
		broken BOOLEAN NOT NULL DEFAULT FALSE,
		broken_reason TEXT,
		claimed BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, cache_key)
	);

	CREATE INDEX IF NOT EXISTS idx_progress_cache_user
		ON progress_cache(user_id);

	-- Claim requests (immutable journal; only status/reason update)
	CREATE TABLE IF NOT EXISTS claim_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		claim_type TEXT NOT NULL,
		period_key TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claim_requests_user
		ON claim_requests(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_claim_requests_period
		ON claim_requests(user_id, claim_type, period_key);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROGRESS STORE (engine.ProgressStore interface)
// =============================================================================

// Get returns the cached record under (userID, cacheKey).
func (s *Store) Get(ctx context.Context, userID engine.UserID, cacheKey string) (engine.ProgressRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rec          engine.ProgressRecord
		periodKey    string
		brokenReason sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT period_key, progress_count, target_count, broken, broken_reason, claimed
		 FROM progress_cache WHERE user_id = ? AND cache_key = ?`,
		string(userID), cacheKey,
	).Scan(&periodKey, &rec.ProgressCount, &rec.TargetCount, &rec.Broken, &brokenReason, &rec.Claimed)

	if err == sql.ErrNoRows {
		return engine.ProgressRecord{}, false, nil
	}
	if err != nil {
		return engine.ProgressRecord{}, false, fmt.Errorf("%w: %v", engine.ErrStorage, err)
	}

	rec.UserID = userID
	rec.PeriodKey = engine.PeriodKey(periodKey)
	rec.BrokenReason = brokenReason.String
	return rec, true, nil
}

// Put overwrites the cached record under (userID, cacheKey).
func (s *Store) Put(ctx context.Context, userID engine.UserID, cacheKey string, rec engine.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO progress_cache
		(user_id, cache_key, period_key, progress_count, target_count, broken, broken_reason, claimed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, cache_key) DO UPDATE SET
			period_key = excluded.period_key,
			progress_count = excluded.progress_count,
			target_count = excluded.target_count,
			broken = excluded.broken,
			broken_reason = excluded.broken_reason,
			claimed = excluded.claimed,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(userID), cacheKey, string(rec.PeriodKey),
		rec.ProgressCount, rec.TargetCount,
		rec.Broken, nullString(rec.BrokenReason), rec.Claimed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrStorage, err)
	}
	return nil
}

// =============================================================================
// CLAIM REQUEST JOURNAL
// =============================================================================

// ClaimRecord is a journaled claim submission.
type ClaimRecord struct {
	ID          string
	UserID      string
	ClaimType   string
	PeriodKey   string
	SubmittedAt time.Time
	Status      string // pending, approved, rejected
	Reason      string
	CreatedAt   time.Time
}

// SaveClaimRequest journals a submitted claim. Insert-only: a request
// is immutable once created.
func (s *Store) SaveClaimRequest(ctx context.Context, req engine.ClaimRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claim_requests (id, user_id, claim_type, period_key, submitted_at, status, created_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', ?)`,
		string(req.ID), string(req.UserID), req.Claim.ClaimID(), string(req.PeriodKey),
		req.SubmittedAt.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrStorage, err)
	}
	return nil
}

// MarkClaimResult records the server-reported outcome for a journaled
// claim. The request itself is untouched.
func (s *Store) MarkClaimResult(ctx context.Context, id, status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE claim_requests SET status = ?, reason = ? WHERE id = ?`,
		status, nullString(reason), id,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrStorage, err)
	}
	return nil
}

// GetClaimsByUser returns a user's journaled claims, newest first.
func (s *Store) GetClaimsByUser(ctx context.Context, userID engine.UserID) ([]ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, claim_type, period_key, submitted_at, status, reason, created_at
		 FROM claim_requests WHERE user_id = ? ORDER BY created_at DESC`,
		string(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrStorage, err)
	}
	defer rows.Close()

	var records []ClaimRecord
	for rows.Next() {
		var (
			r                      ClaimRecord
			submittedAt, createdAt string
			reason                 sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ClaimType, &r.PeriodKey, &submittedAt, &r.Status, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrStorage, err)
		}
		r.SubmittedAt, _ = time.Parse(time.RFC3339, submittedAt)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.Reason = reason.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// HasOpenClaim reports whether the user already has a pending or
// approved claim journaled for (claimType, periodKey). Display-level
// double-submit guard; the server remains the enforcement point.
func (s *Store) HasOpenClaim(ctx context.Context, userID engine.UserID, claimType string, key engine.PeriodKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_requests
		 WHERE user_id = ? AND claim_type = ? AND period_key = ? AND status IN ('pending', 'approved')`,
		string(userID), claimType, string(key),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: %v", engine.ErrStorage, err)
	}
	return count > 0, nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"progress_cache", "claim_requests"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
