package sched

import "errors"

// Sentinel errors for the sched package.
// Use errors.Is to check: errors.Is(err, sched.ErrInvalidQuality)
var (
	ErrInvalidQuality = errors.New("sched: quality must be 1 (incorrect) or 2 (correct)")
)
