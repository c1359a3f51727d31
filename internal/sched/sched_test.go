package sched

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/repcard/repcard/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func mustNext(t *testing.T, q Quality, prior Prior) Result {
	t.Helper()
	res, err := DefaultParams().Next(q, prior, t0)
	if err != nil {
		t.Fatalf("Next(%v, %+v): %v", q, prior, err)
	}
	return res
}

func TestInvalidQualityRejected(t *testing.T) {
	for _, q := range []Quality{0, 3, -1, 5} {
		_, err := DefaultParams().Next(q, Prior{}, t0)
		if !errors.Is(err, ErrInvalidQuality) {
			t.Errorf("Next(%d) error = %v, want ErrInvalidQuality", int(q), err)
		}
	}
}

// A first-ever review rated incorrect.
func TestNewIncorrect(t *testing.T) {
	res := mustNext(t, Incorrect, Prior{})
	if res.State != domain.StateLearning {
		t.Errorf("State = %v, want learning", res.State)
	}
	if res.Interval != 1 {
		t.Errorf("Interval = %v, want 1 (minute)", res.Interval)
	}
	if res.Ease != 2.5 {
		t.Errorf("Ease = %v, want 2.5", res.Ease)
	}
	if !res.Due.Equal(t0.Add(time.Minute)) {
		t.Errorf("Due = %v, want now+1m", res.Due)
	}
}

// Graduation out of learning.
func TestLearningCorrectGraduates(t *testing.T) {
	res := mustNext(t, Correct, Prior{State: domain.StateLearning, Interval: 1, Ease: 2.5})
	if res.State != domain.StateReview {
		t.Errorf("State = %v, want review", res.State)
	}
	if res.Interval != 1 {
		t.Errorf("Interval = %v, want 1 (day)", res.Interval)
	}
	if res.Ease != 2.5 {
		t.Errorf("Ease = %v, want 2.5", res.Ease)
	}
	if !res.Due.Equal(t0.Add(24 * time.Hour)) {
		t.Errorf("Due = %v, want now+1d", res.Due)
	}
}

// Every correct answer from new or learning graduates to review at
// one day.
func TestGraduationProperty(t *testing.T) {
	priors := []Prior{
		{},
		{State: domain.StateNew, Interval: 0, Ease: 2.5},
		{State: domain.StateLearning, Interval: 10, Ease: 1.9},
	}
	for _, prior := range priors {
		res := mustNext(t, Correct, prior)
		if res.State != domain.StateReview || res.Interval != 1 {
			t.Errorf("prior %+v: got state=%v interval=%v, want review/1", prior, res.State, res.Interval)
		}
	}
}

// Review success applies the ease bonus and multiplies.
func TestReviewCorrect(t *testing.T) {
	res := mustNext(t, Correct, Prior{State: domain.StateReview, Interval: 10, Ease: 2.6})
	if got, want := res.Ease, 2.7; math.Abs(got-want) > 1e-9 {
		t.Errorf("Ease = %v, want %v", got, want)
	}
	if res.Interval != 27 { // round(10 * 2.7)
		t.Errorf("Interval = %v, want 27", res.Interval)
	}
	if !res.Due.Equal(t0.Add(27 * 24 * time.Hour)) {
		t.Errorf("Due = %v, want now+27d", res.Due)
	}
}

// Demotion resets to a one-minute learning step without touching
// the ease factor.
func TestReviewIncorrectDemotes(t *testing.T) {
	res := mustNext(t, Incorrect, Prior{State: domain.StateReview, Interval: 40, Ease: 2.8})
	if res.State != domain.StateLearning {
		t.Errorf("State = %v, want learning", res.State)
	}
	if res.Interval != 1 {
		t.Errorf("Interval = %v, want 1 (minute)", res.Interval)
	}
	if res.Ease != 2.8 {
		t.Errorf("Ease = %v, want 2.8 unchanged", res.Ease)
	}
	if !res.Due.Equal(t0.Add(time.Minute)) {
		t.Errorf("Due = %v, want now+1m", res.Due)
	}
}

// Ease never drops below 1.3 no matter how the record starts.
func TestEaseFloor(t *testing.T) {
	eases := []float64{1.3, 0.5, -2, math.NaN(), math.Inf(1), 1.29}
	for _, e := range eases {
		res := mustNext(t, Correct, Prior{State: domain.StateReview, Interval: 5, Ease: e})
		if res.Ease < 1.3 {
			t.Errorf("prior ease %v: result ease %v below floor", e, res.Ease)
		}
	}
}

// Driven forward, a long streak of successes only grows ease.
func TestEaseMonotoneOverStreak(t *testing.T) {
	prior := Prior{State: domain.StateReview, Interval: 1, Ease: 1.3}
	last := prior.Ease
	for i := 0; i < 100; i++ {
		res := mustNext(t, Correct, prior)
		if res.Ease < last {
			t.Fatalf("step %d: ease %v dropped below %v", i, res.Ease, last)
		}
		last = res.Ease
		prior = Prior{State: res.State, Interval: res.Interval, Ease: res.Ease}
	}
}

// Review intervals stay within [1, 365].
func TestIntervalBounds(t *testing.T) {
	priors := []Prior{
		{State: domain.StateReview, Interval: 0.1, Ease: 1.3},
		{State: domain.StateReview, Interval: 300, Ease: 2.5},
		{State: domain.StateReview, Interval: 364, Ease: 3.0},
		{State: domain.StateReview, Interval: math.NaN(), Ease: 2.5},
	}
	for _, prior := range priors {
		res := mustNext(t, Correct, prior)
		if res.Interval < 1 || res.Interval > 365 {
			t.Errorf("prior %+v: interval %v out of [1, 365]", prior, res.Interval)
		}
	}
}

// A corrupted over-cap interval is reset to 1 before the multiply,
// not clamped afterwards.
func TestCorruptIntervalResetBeforeMultiply(t *testing.T) {
	res := mustNext(t, Correct, Prior{State: domain.StateReview, Interval: 400, Ease: 2.5})
	if res.Interval != 3 { // round(1 * 2.6)
		t.Errorf("Interval = %v, want 3", res.Interval)
	}
}

func TestNaNIntervalSanitized(t *testing.T) {
	res := mustNext(t, Correct, Prior{State: domain.StateReview, Interval: math.NaN(), Ease: math.NaN()})
	// Both fields fall back: interval 1, ease 2.5+0.1.
	if got, want := res.Ease, 2.6; math.Abs(got-want) > 1e-9 {
		t.Errorf("Ease = %v, want %v", got, want)
	}
	if res.Interval != 3 { // round(1 * 2.6)
		t.Errorf("Interval = %v, want 3", res.Interval)
	}
	if res.Due.IsZero() {
		t.Error("Due must never be zero")
	}
}

func TestUnknownStateTreatedAsNew(t *testing.T) {
	res := mustNext(t, Correct, Prior{State: "mastered", Interval: 50, Ease: 2.5})
	if res.State != domain.StateReview || res.Interval != 1 {
		t.Errorf("got state=%v interval=%v, want graduation from new", res.State, res.Interval)
	}
}

func TestZeroNowStillProducesValidDue(t *testing.T) {
	res, err := DefaultParams().Next(Correct, Prior{}, time.Time{})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if res.Due.IsZero() {
		t.Error("Due must be substituted with a safe fallback, got zero")
	}
}

func TestCustomMaxInterval(t *testing.T) {
	p := Params{MaxIntervalDays: 30}
	res, err := p.Next(Correct, Prior{State: domain.StateReview, Interval: 20, Ease: 2.5}, t0)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if res.Interval != 30 { // round(20*2.6)=52 clamped to 30
		t.Errorf("Interval = %v, want clamped 30", res.Interval)
	}
}

func TestQualityText(t *testing.T) {
	if Incorrect.String() != "Incorrect" || Correct.String() != "Correct" {
		t.Error("unexpected quality names")
	}
	var q Quality
	if err := q.UnmarshalText([]byte("Correct")); err != nil || q != Correct {
		t.Errorf("UnmarshalText = %v, %v", q, err)
	}
	if err := q.UnmarshalText([]byte("Easy")); !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("UnmarshalText unknown name error = %v, want ErrInvalidQuality", err)
	}
}
