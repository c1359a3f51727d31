package study

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Timer defaults.
const (
	DefaultIdleTimeout  = 2 * time.Minute
	DefaultPollInterval = 10 * time.Second
)

// ActivityTimer tracks active (attention-present) time within one study
// session, distinct from wall-clock duration. It accumulates completed
// active segments: user interaction keeps the current segment open, and
// a poll that finds no interaction for idleTimeout closes the segment
// at the last activity instant. Idle time is never credited, and never
// retroactively credited when activity resumes.
//
// One timer instance is owned by one session and torn down with it;
// the poll job does not outlive the session.
type ActivityTimer struct {
	idleTimeout  time.Duration
	pollInterval time.Duration
	clock        func() time.Time

	mu           sync.Mutex
	accumulated  time.Duration
	segmentStart time.Time
	lastActivity time.Time
	active       bool
	poller       *gocron.Scheduler
}

// NewActivityTimer creates a stopped timer. Non-positive durations fall
// back to the defaults; a nil clock uses time.Now.
func NewActivityTimer(idleTimeout, pollInterval time.Duration, clock func() time.Time) *ActivityTimer {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if clock == nil {
		clock = time.Now
	}
	return &ActivityTimer{
		idleTimeout:  idleTimeout,
		pollInterval: pollInterval,
		clock:        clock,
	}
}

// Start opens the first active segment and launches the background poll
// job. Calling Start on a running timer restarts its segment state but
// keeps the existing poller.
func (t *ActivityTimer) Start() {
	now := t.clock()

	t.mu.Lock()
	t.active = true
	t.segmentStart = now
	t.lastActivity = now
	t.mu.Unlock()

	if t.poller == nil {
		s := gocron.NewScheduler(time.UTC)
		s.Every(t.pollInterval).Do(t.poll)
		s.StartAsync()
		t.poller = s
	}
}

// Touch records a user interaction. If the timer had gone idle, a new
// active segment opens at now; the idle gap stays uncredited.
func (t *ActivityTimer) Touch() {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		t.active = true
		t.segmentStart = now
	}
	t.lastActivity = now
}

// poll folds elapsed active time into the running total. While active,
// the open segment is flushed and restarted at now, which keeps totals
// accurate across any number of idle/active cycles. Once the idle
// timeout passes, the segment is closed at the last activity instant
// and the timer flips idle.
func (t *ActivityTimer) poll() {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}

	if now.Sub(t.lastActivity) >= t.idleTimeout {
		if t.lastActivity.After(t.segmentStart) {
			t.accumulated += t.lastActivity.Sub(t.segmentStart)
		}
		t.active = false
		return
	}

	t.accumulated += now.Sub(t.segmentStart)
	t.segmentStart = now
}

// Reset zeroes the accumulator and opens a fresh segment. Used at round
// boundaries so each round's active time is accounted separately.
func (t *ActivityTimer) Reset() {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accumulated = 0
	t.active = true
	t.segmentStart = now
	t.lastActivity = now
}

// Flush closes any open segment and returns the total so far, leaving
// the accumulator intact. Used for best-effort reads at teardown.
func (t *ActivityTimer) Flush() time.Duration {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		if now.Sub(t.lastActivity) >= t.idleTimeout {
			if t.lastActivity.After(t.segmentStart) {
				t.accumulated += t.lastActivity.Sub(t.segmentStart)
			}
		} else if now.After(t.segmentStart) {
			t.accumulated += now.Sub(t.segmentStart)
		}
		t.segmentStart = now
		t.active = false
	}
	return t.accumulated
}

// Stop flushes the open segment, cancels the poll job, and returns the
// final total. The timer may be restarted afterwards with Start.
func (t *ActivityTimer) Stop() time.Duration {
	total := t.Flush()
	if t.poller != nil {
		t.poller.Stop()
		t.poller = nil
	}
	return total
}

// Active reports whether the timer currently considers the user present.
func (t *ActivityTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
