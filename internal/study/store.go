package study

import (
	"context"

	"github.com/repcard/repcard/internal/domain"
)

// Store is the narrow persistence surface the study core depends on.
// The sqlite implementation lives in internal/storage; the core holds
// no assumptions about the engine behind it.
type Store interface {
	// DeckCards returns the deck's cards in their stored order.
	DeckCards(ctx context.Context, deckID string) ([]domain.Card, error)

	// CardProgress returns the user's per-card progress for a deck,
	// keyed by card id. Cards never studied have no entry.
	CardProgress(ctx context.Context, userID, deckID string) (map[string]domain.CardProgress, error)

	// PutCardProgress upserts one card's progress record.
	PutCardProgress(ctx context.Context, userID, deckID string, p domain.CardProgress) error

	// SessionState returns the persisted checkpoint for (user, deck),
	// or nil when none exists.
	SessionState(ctx context.Context, userID, deckID string) (*domain.SessionState, error)

	// PutSessionState upserts the checkpoint for (user, deck).
	PutSessionState(ctx context.Context, userID, deckID string, st domain.SessionState) error

	// ClearSessionState removes the checkpoint for (user, deck).
	ClearSessionState(ctx context.Context, userID, deckID string) error

	// AppendStudyLog appends one study-session record.
	AppendStudyLog(ctx context.Context, entry domain.StudyLog) error
}
