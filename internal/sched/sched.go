// Package sched computes review scheduling: given a card's prior
// learning state and a binary recall quality, it produces the next
// state, interval, ease factor, and due instant. It is pure: no I/O,
// and the clock is always passed in by the caller.
package sched

import (
	"fmt"
	"math"
	"time"

	"github.com/repcard/repcard/internal/domain"
)

// Scheduling constants. Intervals are minutes in the learning state and
// days in the review state.
const (
	DefaultEase = 2.5
	MinEase     = 1.3
	EaseBonus   = 0.1

	LearningStepMinutes = 1
	GraduateDays        = 1
)

// Params holds the tunables of the scheduler.
type Params struct {
	// MaxIntervalDays caps review intervals. Prior intervals above the
	// cap are treated as corrupt and reset before multiplying.
	MaxIntervalDays int
}

// DefaultParams returns the standard scheduler parameters.
func DefaultParams() Params {
	return Params{MaxIntervalDays: 365}
}

// Prior is the subset of a card's progress the scheduler reads. The
// zero value is a first-ever review: state new, interval 0, ease 0
// (which falls back to the 2.5 default).
type Prior struct {
	State    domain.LearningState
	Interval float64
	Ease     float64
}

// Result is the complete next state computed from one rating. All four
// fields are always well-formed; the scheduler never returns a partial
// result or an invalid due date.
type Result struct {
	State    domain.LearningState
	Interval float64
	Ease     float64
	Due      time.Time
}

// Next computes the next review state for one rating at the given
// instant. Quality outside {1, 2} is rejected before any date
// arithmetic. Malformed prior fields (NaN, infinities, out-of-range
// intervals, unknown states) are sanitized locally and never propagate
// into the result.
func (p Params) Next(q Quality, prior Prior, now time.Time) (Result, error) {
	if !q.IsValid() {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidQuality, int(q))
	}

	maxIvl := p.MaxIntervalDays
	if maxIvl < 1 {
		maxIvl = DefaultParams().MaxIntervalDays
	}

	state := prior.State
	if state == "" || !state.IsValid() {
		state = domain.StateNew
	}

	var res Result
	switch {
	case state == domain.StateNew || state == domain.StateLearning:
		if q == Incorrect {
			res = Result{
				State:    domain.StateLearning,
				Interval: LearningStepMinutes,
				Ease:     sanitizeEase(prior.Ease),
				Due:      now.Add(LearningStepMinutes * time.Minute),
			}
		} else {
			// Graduation: the first success moves the card into the
			// long-term review cycle at one day.
			res = Result{
				State:    domain.StateReview,
				Interval: GraduateDays,
				Ease:     sanitizeEase(prior.Ease),
				Due:      now.Add(GraduateDays * 24 * time.Hour),
			}
		}

	case q == Incorrect:
		// Demotion back to learning. Ease is not penalized: only
		// successes adjust it.
		res = Result{
			State:    domain.StateLearning,
			Interval: LearningStepMinutes,
			Ease:     sanitizeEase(prior.Ease),
			Due:      now.Add(LearningStepMinutes * time.Minute),
		}

	default:
		ivl := sanitizeInterval(prior.Interval, maxIvl)
		ease := math.Max(MinEase, sanitizeEase(prior.Ease)+EaseBonus)
		next := math.Round(ivl * ease)
		// Re-validated independently of the input sanitization: the
		// product itself must be finite before it is clamped.
		if math.IsNaN(next) || math.IsInf(next, 0) {
			next = 1
		}
		next = clamp(next, 1, float64(maxIvl))
		res = Result{
			State:    domain.StateReview,
			Interval: next,
			Ease:     ease,
			Due:      now.Add(time.Duration(next) * 24 * time.Hour),
		}
	}

	res.Due = safeDue(res.Due, now)
	return res, nil
}

// sanitizeInterval resets a prior interval that is NaN, infinite,
// non-positive, or beyond the cap back to 1 before it is multiplied.
func sanitizeInterval(ivl float64, maxIvl int) float64 {
	if math.IsNaN(ivl) || math.IsInf(ivl, 0) || ivl <= 0 || ivl > float64(maxIvl) {
		return 1
	}
	return ivl
}

// sanitizeEase falls back to the default ease when the stored value is
// unusable, and enforces the 1.3 floor otherwise.
func sanitizeEase(ease float64) float64 {
	if math.IsNaN(ease) || math.IsInf(ease, 0) || ease <= 0 {
		return DefaultEase
	}
	if ease < MinEase {
		return MinEase
	}
	return ease
}

// safeDue guards the final due instant. Time arithmetic on a sane now
// cannot misfire, but a zero clock round-tripped through a corrupt
// record must not be persisted; the fallback is now + 1 day.
func safeDue(due, now time.Time) time.Time {
	if due.IsZero() || due.Year() < 1970 || due.Year() > 9999 {
		return now.Add(24 * time.Hour)
	}
	return due
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
