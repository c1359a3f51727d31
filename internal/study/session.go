package study

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/repcard/repcard/internal/domain"
	"github.com/repcard/repcard/internal/sched"
)

// Phase is the lifecycle stage of a study session.
type Phase int

const (
	PhaseLoading       Phase = iota // Loaded, awaiting a resume/discard decision.
	PhaseActive                     // Mid-round, cards remaining.
	PhaseRoundComplete              // Round finished, retries may be pending.
	PhaseFinished                   // Nothing left to study.
)

var phaseNames = [...]string{
	PhaseLoading:       "Loading",
	PhaseActive:        "Active",
	PhaseRoundComplete: "RoundComplete",
	PhaseFinished:      "Finished",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Config carries a session's identity and policy knobs. Zero-value
// durations and nil dependencies fall back to defaults.
type Config struct {
	UserID string
	DeckID string

	// FallbackAllWhenNoneDue presents the whole deck when the due
	// filter comes back empty for a non-empty deck.
	FallbackAllWhenNoneDue bool

	IdleTimeout  time.Duration
	PollInterval time.Duration

	// MinLoggedActive is the threshold below which a round's active
	// time is not written to the study log. Zero means the 1s default.
	MinLoggedActive time.Duration

	Params sched.Params
	Clock  func() time.Time
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Session orchestrates one deck-study session: card ordering, round
// progression with a retry queue, per-rating persistence, and active
// time tracking. A session is driven by one caller at a time; writes
// are issued sequentially, one per rating.
type Session struct {
	store  Store
	cfg    Config
	params sched.Params
	clock  func() time.Time
	rng    *rand.Rand
	log    *slog.Logger
	timer  *ActivityTimer

	phase    Phase
	cards    []domain.Card
	byID     map[string]domain.Card
	progress map[string]domain.CardProgress

	order []string
	idx   int
	round int
	stats domain.RoundStats
	retry []string

	pending *domain.SessionState
}

// Begin loads the deck, the user's progress, and any persisted
// checkpoint for (user, deck). When a checkpoint exists the session
// stays in PhaseLoading and the caller must choose Resume or Discard;
// a saved session is never silently resumed or thrown away. Otherwise
// the first round starts over the due set immediately.
func Begin(ctx context.Context, store Store, cfg Config) (*Session, error) {
	s := &Session{
		store:  store,
		cfg:    cfg,
		params: cfg.Params,
		clock:  cfg.Clock,
		rng:    cfg.Rand,
		log:    cfg.Logger,
	}
	if s.params.MaxIntervalDays == 0 {
		s.params = sched.DefaultParams()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.cfg.MinLoggedActive == 0 {
		s.cfg.MinLoggedActive = time.Second
	}
	s.timer = NewActivityTimer(cfg.IdleTimeout, cfg.PollInterval, s.clock)

	cards, err := store.DeckCards(ctx, cfg.DeckID)
	if err != nil {
		return nil, fmt.Errorf("load deck %s: %w", cfg.DeckID, err)
	}
	progress, err := store.CardProgress(ctx, cfg.UserID, cfg.DeckID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if progress == nil {
		progress = make(map[string]domain.CardProgress)
	}
	saved, err := store.SessionState(ctx, cfg.UserID, cfg.DeckID)
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}

	s.cards = cards
	s.progress = progress
	s.byID = make(map[string]domain.Card, len(cards))
	for _, c := range cards {
		s.byID[c.ID] = c
	}

	if saved != nil && len(saved.CardOrder) > 0 {
		s.pending = s.reconcileCheckpoint(*saved)
	}
	if s.pending != nil {
		s.phase = PhaseLoading
		return s, nil
	}

	s.startRoundOver(s.dueSet())
	return s, nil
}

// reconcileCheckpoint filters card ids that no longer exist in the deck
// out of a saved order and clamps the cursor. A checkpoint left with no
// usable cards is dropped entirely.
func (s *Session) reconcileCheckpoint(saved domain.SessionState) *domain.SessionState {
	kept := make([]string, 0, len(saved.CardOrder))
	for _, id := range saved.CardOrder {
		if _, ok := s.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	if dropped := len(saved.CardOrder) - len(kept); dropped > 0 {
		s.log.Warn("saved session references cards no longer in the deck",
			"deck", s.cfg.DeckID, "dropped", dropped)
	}
	if len(kept) == 0 {
		return nil
	}
	saved.CardOrder = kept
	if saved.CurrentCardIndex > len(kept) {
		saved.CurrentCardIndex = len(kept)
	}
	if saved.CurrentCardIndex < 0 {
		saved.CurrentCardIndex = 0
	}
	if saved.CurrentRound < 1 {
		saved.CurrentRound = 1
	}
	return &saved
}

// HasCheckpoint reports whether a persisted session awaits a resume or
// discard decision.
func (s *Session) HasCheckpoint() bool {
	return s.pending != nil
}

// Checkpoint returns a copy of the pending checkpoint for display, or
// nil when there is none.
func (s *Session) Checkpoint() *domain.SessionState {
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	cp.CardOrder = append([]string(nil), s.pending.CardOrder...)
	return &cp
}

// Resume continues the checkpointed session: the exact persisted card
// order, cursor, round, and stats. Never a reshuffle.
func (s *Session) Resume(ctx context.Context) error {
	if s.pending == nil {
		return ErrNoPendingCheckpoint
	}
	cp := s.pending
	s.pending = nil

	s.order = cp.CardOrder
	s.idx = cp.CurrentCardIndex
	s.round = cp.CurrentRound
	s.stats = cp.Stats
	s.retry = nil
	s.phase = PhaseActive
	s.timer.Start()

	if s.idx >= len(s.order) {
		// The checkpoint was taken at the very end of a round.
		s.completeRound(ctx)
	}
	return nil
}

// Discard drops the checkpoint and starts a fresh session over the
// current due set.
func (s *Session) Discard(ctx context.Context) error {
	if s.pending == nil {
		return ErrNoPendingCheckpoint
	}
	if err := s.store.ClearSessionState(ctx, s.cfg.UserID, s.cfg.DeckID); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	s.pending = nil
	s.startRoundOver(s.dueSet())
	return nil
}

// dueSet runs the due selector over the deck with the session's policy.
func (s *Session) dueSet() []string {
	due := SelectDue(s.cards, s.progress, s.clock(), s.cfg.FallbackAllWhenNoneDue, s.rng)
	ids := make([]string, len(due))
	for i, c := range due {
		ids[i] = c.ID
	}
	return ids
}

// startRoundOver begins round 1 over the given order. An empty order
// finishes the session immediately.
func (s *Session) startRoundOver(order []string) {
	s.order = order
	s.idx = 0
	s.round = 1
	s.stats = domain.RoundStats{}
	s.retry = nil
	if len(order) == 0 {
		s.phase = PhaseFinished
		return
	}
	s.phase = PhaseActive
	s.timer.Start()
}

// Current returns the card under the cursor. ok is false outside an
// active round.
func (s *Session) Current() (domain.Card, bool) {
	if s.phase != PhaseActive || s.idx >= len(s.order) {
		return domain.Card{}, false
	}
	return s.byID[s.order[s.idx]], true
}

// Touch forwards a user-interaction event to the activity timer.
func (s *Session) Touch() {
	s.timer.Touch()
}

// Rate applies one recall rating to the current card: the scheduler
// computes the next progress, the progress is persisted, the outcome is
// classified into the round stats and retry queue, and the session
// checkpoint is saved. If persisting the progress fails the cursor does
// not advance: the same card must be rated again, a rating is never
// silently dropped. hintUsed is telemetry only; it never alters the
// quality fed to the scheduler.
func (s *Session) Rate(ctx context.Context, q sched.Quality, hintUsed bool) error {
	if s.pending != nil {
		return ErrPendingCheckpoint
	}
	if s.phase != PhaseActive || s.idx >= len(s.order) {
		return ErrNotActive
	}

	cardID := s.order[s.idx]
	prior := sched.Prior{Ease: sched.DefaultEase}
	prev, studied := s.progress[cardID]
	if studied {
		prior = sched.Prior{
			State:    prev.LearningState,
			Interval: prev.Interval,
			Ease:     prev.EaseFactor,
		}
	}

	now := s.clock()
	res, err := s.params.Next(q, prior, now)
	if err != nil {
		return err
	}

	next := domain.CardProgress{
		CardID:        cardID,
		LearningState: res.State,
		Interval:      res.Interval,
		EaseFactor:    res.Ease,
		NextReview:    domain.StampFromTime(res.Due),
		ReviewCount:   prev.ReviewCount + 1,
		LastReviewed:  now,
	}
	if err := s.store.PutCardProgress(ctx, s.cfg.UserID, s.cfg.DeckID, next); err != nil {
		return fmt.Errorf("save progress for card %s: %w", cardID, err)
	}
	s.progress[cardID] = next

	if q == sched.Incorrect {
		s.retry = append(s.retry, cardID)
		s.stats.Incorrect++
	} else {
		s.stats.Correct++
	}
	if hintUsed {
		s.stats.Hints++
	}
	s.timer.Touch()
	s.idx++

	// Per-card checkpoint. A failed checkpoint does not roll back the
	// rating: the progress write is the authoritative one, and losing
	// the checkpoint risks at most one card of resume position.
	if err := s.store.PutSessionState(ctx, s.cfg.UserID, s.cfg.DeckID, s.snapshot()); err != nil {
		s.log.Warn("failed to checkpoint session state", "deck", s.cfg.DeckID, "error", err)
	}

	if s.idx >= len(s.order) {
		s.completeRound(ctx)
	}
	return nil
}

// completeRound flushes the round's active time to the study log and
// either parks the session at RoundComplete (retries pending) or
// finishes it.
func (s *Session) completeRound(ctx context.Context) {
	s.phase = PhaseRoundComplete
	s.flushLog(ctx, s.timer.Flush())

	if len(s.retry) == 0 {
		s.phase = PhaseFinished
		if err := s.store.ClearSessionState(ctx, s.cfg.UserID, s.cfg.DeckID); err != nil {
			s.log.Warn("failed to clear session state", "deck", s.cfg.DeckID, "error", err)
		}
		s.timer.Stop()
	}
}

// flushLog appends a study-session record unless the active time is
// below the noise threshold.
func (s *Session) flushLog(ctx context.Context, active time.Duration) {
	if active < s.cfg.MinLoggedActive || s.idx == 0 {
		return
	}
	entry := domain.StudyLog{
		UserID:       s.cfg.UserID,
		DeckID:       s.cfg.DeckID,
		DurationMS:   active.Milliseconds(),
		CardsStudied: s.idx,
		Timestamp:    s.clock(),
	}
	if err := s.store.AppendStudyLog(ctx, entry); err != nil {
		s.log.Warn("failed to append study log", "deck", s.cfg.DeckID, "error", err)
	}
}

// NextRound starts another round over the cards missed in this one.
// The cross-round checkpoint is cleared: only mid-round progress is
// resumable.
func (s *Session) NextRound(ctx context.Context) error {
	if s.phase != PhaseRoundComplete {
		return ErrNotActive
	}
	if len(s.retry) == 0 {
		return ErrNoRetries
	}
	if err := s.store.ClearSessionState(ctx, s.cfg.UserID, s.cfg.DeckID); err != nil {
		s.log.Warn("failed to clear session state", "deck", s.cfg.DeckID, "error", err)
	}

	order := append([]string(nil), s.retry...)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	s.order = order
	s.retry = nil
	s.idx = 0
	s.round++
	s.stats = domain.RoundStats{}
	s.phase = PhaseActive
	s.timer.Reset()
	return nil
}

// Restart begins an entirely new session over all deck cards ("review
// again"), regardless of due dates.
func (s *Session) Restart(ctx context.Context) error {
	if s.phase != PhaseFinished {
		return ErrNotActive
	}
	order := make([]string, len(s.cards))
	for i, c := range s.cards {
		order[i] = c.ID
	}
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	s.timer.Reset()
	s.startRoundOver(order)
	return nil
}

// Suspend pauses the session for a later resume: active time is
// flushed but the persisted checkpoint is left in place, so the next
// Begin for this (user, deck) offers to pick up where this one stopped.
func (s *Session) Suspend(ctx context.Context) {
	if s.phase != PhaseActive {
		return
	}
	total := s.timer.Stop()
	s.flushLog(ctx, total)
	s.phase = PhaseFinished
}

// Abandon ends the session mid-flight: best-effort flush of active time
// and the checkpoint is cleared. Failures are logged, never returned;
// abandoning must not block on persistence.
func (s *Session) Abandon(ctx context.Context) {
	if s.phase == PhaseFinished {
		return
	}
	total := s.timer.Stop()
	// A session parked at RoundComplete already flushed its log when
	// the round ended.
	if s.phase == PhaseActive {
		s.flushLog(ctx, total)
	}
	if err := s.store.ClearSessionState(ctx, s.cfg.UserID, s.cfg.DeckID); err != nil {
		s.log.Warn("failed to clear session state", "deck", s.cfg.DeckID, "error", err)
	}
	s.phase = PhaseFinished
}

// snapshot captures the resumable state after a rating.
func (s *Session) snapshot() domain.SessionState {
	return domain.SessionState{
		CardOrder:        append([]string(nil), s.order...),
		CurrentCardIndex: s.idx,
		CurrentRound:     s.round,
		Stats:            s.stats,
	}
}

// Phase returns the session's lifecycle stage.
func (s *Session) Phase() Phase { return s.phase }

// Round returns the current round number, starting at 1.
func (s *Session) Round() int { return s.round }

// Stats returns the current round's outcome counts.
func (s *Session) Stats() domain.RoundStats { return s.stats }

// Position returns the cursor and the length of the current order.
func (s *Session) Position() (int, int) { return s.idx, len(s.order) }

// RetryCount returns how many cards are queued for another round.
func (s *Session) RetryCount() int { return len(s.retry) }
