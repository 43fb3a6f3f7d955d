package engine

// =============================================================================
// MONOTONIC MERGE - Combining records without visible regression
// =============================================================================

// Merge combines two progress records for the same (user, period) such
// that the result never regresses visible state:
//
//   - ProgressCount: max of both sides
//   - Broken:        sticky-true (OR)
//   - Claimed:       sticky-true (OR)
//   - BrokenReason:  whichever side reports broken; incoming's reason
//     wins when both are broken
//
// Merge is commutative, associative, and idempotent on these fields, so
// a poll timer and a manual refresh firing close together - or a stale
// in-flight response arriving late - cannot corrupt state. Applying the
// same incoming record twice is a no-op.
//
// The server is sometimes queried mid-transaction (e.g., "is today still
// pending, not yet marked broken"); a naive always-trust-server policy
// would make a progress bar visibly jump backward on a race. Merge lets
// the server supply strictly better information without ever showing less.
func Merge(existing, incoming ProgressRecord) ProgressRecord {
	merged := existing

	if incoming.ProgressCount > merged.ProgressCount {
		merged.ProgressCount = incoming.ProgressCount
	}
	if incoming.TargetCount != 0 {
		merged.TargetCount = incoming.TargetCount
	}

	merged.Broken = existing.Broken || incoming.Broken
	merged.Claimed = existing.Claimed || incoming.Claimed

	switch {
	case incoming.Broken:
		merged.BrokenReason = incoming.BrokenReason
	case existing.Broken:
		merged.BrokenReason = existing.BrokenReason
	default:
		merged.BrokenReason = ""
	}

	// Identity fields: fill from whichever side has them.
	if merged.UserID == "" {
		merged.UserID = incoming.UserID
	}
	if merged.PeriodKey == "" {
		merged.PeriodKey = incoming.PeriodKey
	}

	return merged
}

// resolve merges server and cached records when both are present, uses
// the one that is, or synthesizes a cold-start zero record when neither
// is. This is step 1 of every eligibility decision.
func resolve(userID UserID, key PeriodKey, server, cached *ProgressRecord) ProgressRecord {
	switch {
	case server != nil && cached != nil:
		return Merge(*cached, *server)
	case server != nil:
		return Merge(ZeroRecord(userID, key), *server)
	case cached != nil:
		return Merge(ZeroRecord(userID, key), *cached)
	default:
		return ZeroRecord(userID, key)
	}
}
