package study

import "errors"

// Sentinel errors for the study package.
var (
	// ErrNotActive is returned by Rate when the session is not in an
	// active round (loading, between rounds, or finished).
	ErrNotActive = errors.New("study: session is not in an active round")

	// ErrPendingCheckpoint is returned while a persisted checkpoint
	// awaits an explicit Resume or Discard decision.
	ErrPendingCheckpoint = errors.New("study: a saved session exists; resume or discard it first")

	// ErrNoPendingCheckpoint is returned by Resume/Discard when there
	// is nothing to decide about.
	ErrNoPendingCheckpoint = errors.New("study: no saved session to resume")

	// ErrNoRetries is returned by NextRound when the finished round
	// left nothing to retry.
	ErrNoRetries = errors.New("study: no cards queued for another round")
)
