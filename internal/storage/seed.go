package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/repcard/repcard/internal/cardid"
	"github.com/repcard/repcard/internal/domain"
)

// WelcomeDeckID is the id of the built-in tutorial deck.
const WelcomeDeckID = "welcome-tutorial"

// SeedWelcomeDeck installs the built-in tutorial deck so a fresh
// database has something to study before any sources are configured.
// Existing welcome cards are left alone.
func (db *DB) SeedWelcomeDeck(ctx context.Context) error {
	cards := []domain.Card{
		{
			Front: "What is repcard?",
			Back:  "A spaced-repetition flashcard tool: it schedules when each card should reappear based on how well you recalled it.",
		},
		{
			Front: "How does spaced repetition work?",
			Back:  "Review sessions are scheduled at growing intervals based on how well you know each card, maximizing retention.",
			Hint:  "Think intervals, not cramming.",
		},
		{
			Front: "What are the rating options?",
			Back:  "1 for Incorrect (the card comes back in a minute) and 2 for Correct (the interval grows).",
		},
	}

	if err := db.UpsertDeck(ctx, WelcomeDeckID, "Welcome to repcard", sql.NullInt64{}); err != nil {
		return err
	}

	existing, err := db.DeckCards(ctx, WelcomeDeckID)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.ID] = true
	}

	for i, c := range cards {
		c.ID = cardid.Hash(c)
		if have[c.ID] {
			continue
		}
		if err := db.InsertCard(ctx, WelcomeDeckID, c, i); err != nil {
			return fmt.Errorf("seed welcome deck: %w", err)
		}
	}
	return nil
}
