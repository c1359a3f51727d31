package sched

import (
	"time"

	"github.com/repcard/repcard/internal/domain"
)

// IsDue reports whether a card with the given next-review stamp is due
// at now. A stamp that cannot be normalized to an instant counts as due
// (fail-open): a scheduling bug must never block a user from studying.
func IsDue(next domain.Stamp, now time.Time) bool {
	t, ok := next.Instant()
	if !ok {
		return true
	}
	return !now.Before(t)
}
