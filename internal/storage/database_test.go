package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/repcard/repcard/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSourceLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertSource(ctx, "/tmp/decks", "local")
	if err != nil {
		t.Fatalf("failed to insert source: %v", err)
	}

	sources, err := db.GetAllSources(ctx)
	if err != nil {
		t.Fatalf("failed to get sources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	if sources[0].ID != id || sources[0].Path != "/tmp/decks" || sources[0].Type != "local" {
		t.Errorf("unexpected source: %+v", sources[0])
	}
	if sources[0].LastScanned.Valid {
		t.Error("expected last_scanned to be unset for new source")
	}

	if err := db.UpdateSourceLastScanned(ctx, id); err != nil {
		t.Fatalf("failed to update last scanned: %v", err)
	}
	sources, err = db.GetAllSources(ctx)
	if err != nil {
		t.Fatalf("failed to get sources after update: %v", err)
	}
	if !sources[0].LastScanned.Valid {
		t.Error("expected last_scanned to be set after update")
	}
}

func TestDeckAndCards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	srcID, err := db.InsertSource(ctx, "/tmp/decks", "local")
	if err != nil {
		t.Fatalf("failed to insert source: %v", err)
	}

	if err := db.UpsertDeck(ctx, "geo", "Geography", sql.NullInt64{Int64: srcID, Valid: true}); err != nil {
		t.Fatalf("failed to upsert deck: %v", err)
	}
	// Upsert again with a new title; must not duplicate.
	if err := db.UpsertDeck(ctx, "geo", "World Geography", sql.NullInt64{Int64: srcID, Valid: true}); err != nil {
		t.Fatalf("failed to re-upsert deck: %v", err)
	}

	decks, err := db.ListDecks(ctx)
	if err != nil {
		t.Fatalf("failed to list decks: %v", err)
	}
	if len(decks) != 1 {
		t.Fatalf("expected 1 deck, got %d", len(decks))
	}
	if decks[0].Title != "World Geography" {
		t.Errorf("expected updated title, got %q", decks[0].Title)
	}

	cards := []domain.Card{
		{ID: "c1", Front: "Capital of France?", Back: "Paris"},
		{ID: "c2", Front: "Capital of Japan?", Back: "Tokyo", Hint: "Not Kyoto."},
	}
	for i, c := range cards {
		if err := db.InsertCard(ctx, "geo", c, i); err != nil {
			t.Fatalf("failed to insert card %s: %v", c.ID, err)
		}
	}

	got, err := db.DeckCards(ctx, "geo")
	if err != nil {
		t.Fatalf("failed to get deck cards: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(got))
	}
	if got[0].ID != "c1" || got[1].ID != "c2" {
		t.Errorf("expected cards in position order, got %s then %s", got[0].ID, got[1].ID)
	}
	if got[1].Hint != "Not Kyoto." {
		t.Errorf("expected hint round-trip, got %q", got[1].Hint)
	}

	if err := db.DeleteCard(ctx, "geo", "c1"); err != nil {
		t.Fatalf("failed to delete card: %v", err)
	}
	got, err = db.DeckCards(ctx, "geo")
	if err != nil {
		t.Fatalf("failed to get deck cards after delete: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("expected only c2 to remain, got %+v", got)
	}

	ids, err := db.DecksBySource(ctx, srcID)
	if err != nil {
		t.Fatalf("failed to get decks by source: %v", err)
	}
	if len(ids) != 1 || ids[0] != "geo" {
		t.Errorf("expected deck geo for source, got %v", ids)
	}

	if err := db.DeleteDeck(ctx, "geo"); err != nil {
		t.Fatalf("failed to delete deck: %v", err)
	}
	decks, err = db.ListDecks(ctx)
	if err != nil {
		t.Fatalf("failed to list decks after delete: %v", err)
	}
	if len(decks) != 0 {
		t.Errorf("expected no decks after delete, got %d", len(decks))
	}
}

func TestFindDeck(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertDeck(ctx, "geo", "Geography", sql.NullInt64{}); err != nil {
		t.Fatalf("failed to upsert deck: %v", err)
	}

	byID, err := db.FindDeck(ctx, "geo")
	if err != nil {
		t.Fatalf("failed to find deck by id: %v", err)
	}
	if byID == nil || byID.Title != "Geography" {
		t.Errorf("expected deck by id, got %+v", byID)
	}

	byTitle, err := db.FindDeck(ctx, "Geography")
	if err != nil {
		t.Fatalf("failed to find deck by title: %v", err)
	}
	if byTitle == nil || byTitle.ID != "geo" {
		t.Errorf("expected deck by title, got %+v", byTitle)
	}

	missing, err := db.FindDeck(ctx, "no-such-deck")
	if err != nil {
		t.Fatalf("unexpected error for missing deck: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing deck, got %+v", missing)
	}
}

func TestCardProgressRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := domain.CardProgress{
		CardID:        "c1",
		LearningState: domain.StateReview,
		Interval:      10,
		EaseFactor:    2.6,
		NextReview:    domain.StampFromISO("2025-06-20T10:00:00Z"),
		ReviewCount:   4,
		LastReviewed:  time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := db.PutCardProgress(ctx, "alice", "geo", p); err != nil {
		t.Fatalf("failed to put progress: %v", err)
	}

	// Upsert with new values; the same row must be updated.
	p.Interval = 27
	p.EaseFactor = 2.7
	p.ReviewCount = 5
	if err := db.PutCardProgress(ctx, "alice", "geo", p); err != nil {
		t.Fatalf("failed to re-put progress: %v", err)
	}

	progress, err := db.CardProgress(ctx, "alice", "geo")
	if err != nil {
		t.Fatalf("failed to get progress: %v", err)
	}
	if len(progress) != 1 {
		t.Fatalf("expected 1 progress record, got %d", len(progress))
	}
	got := progress["c1"]
	if got.LearningState != domain.StateReview {
		t.Errorf("expected state review, got %s", got.LearningState)
	}
	if got.Interval != 27 || got.EaseFactor != 2.7 || got.ReviewCount != 5 {
		t.Errorf("unexpected progress values: %+v", got)
	}
	due, ok := got.NextReview.Instant()
	if !ok {
		t.Fatal("expected next review to parse")
	}
	want := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("expected next review %v, got %v", want, due)
	}

	// Another user's progress must be isolated.
	other, err := db.CardProgress(ctx, "bob", "geo")
	if err != nil {
		t.Fatalf("failed to get progress for other user: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no progress for other user, got %d", len(other))
	}
}

func TestSessionStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	got, err := db.SessionState(ctx, "alice", "geo")
	if err != nil {
		t.Fatalf("failed to get missing session state: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session state, got %+v", got)
	}

	st := domain.SessionState{
		CardOrder:        []string{"c2", "c1", "c3"},
		CurrentCardIndex: 1,
		CurrentRound:     2,
		Stats:            domain.RoundStats{Correct: 1, Hints: 1},
	}
	if err := db.PutSessionState(ctx, "alice", "geo", st); err != nil {
		t.Fatalf("failed to put session state: %v", err)
	}

	got, err = db.SessionState(ctx, "alice", "geo")
	if err != nil {
		t.Fatalf("failed to get session state: %v", err)
	}
	if got == nil {
		t.Fatal("expected session state, got nil")
	}
	if len(got.CardOrder) != 3 || got.CardOrder[0] != "c2" {
		t.Errorf("unexpected card order: %v", got.CardOrder)
	}
	if got.CurrentCardIndex != 1 || got.CurrentRound != 2 {
		t.Errorf("unexpected position: index %d round %d", got.CurrentCardIndex, got.CurrentRound)
	}
	if got.Stats.Correct != 1 || got.Stats.Hints != 1 {
		t.Errorf("unexpected stats: %+v", got.Stats)
	}

	if err := db.ClearSessionState(ctx, "alice", "geo"); err != nil {
		t.Fatalf("failed to clear session state: %v", err)
	}
	got, err = db.SessionState(ctx, "alice", "geo")
	if err != nil {
		t.Fatalf("failed to get cleared session state: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after clear, got %+v", got)
	}
}

func TestStudyLog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []domain.StudyLog{
		{UserID: "alice", DeckID: "geo", DurationMS: 15000, CardsStudied: 3, Timestamp: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
		{UserID: "alice", DeckID: "geo", DurationMS: 8000, CardsStudied: 1, Timestamp: time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)},
		{UserID: "bob", DeckID: "geo", DurationMS: 9000, CardsStudied: 2, Timestamp: time.Date(2025, 6, 16, 11, 0, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		if err := db.AppendStudyLog(ctx, e); err != nil {
			t.Fatalf("failed to append study log: %v", err)
		}
	}

	logs, err := db.StudyLogs(ctx, "alice")
	if err != nil {
		t.Fatalf("failed to get study logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs for alice, got %d", len(logs))
	}
	if logs[0].DurationMS != 8000 || logs[1].DurationMS != 15000 {
		t.Errorf("expected newest first, got %d then %d", logs[0].DurationMS, logs[1].DurationMS)
	}
	for _, l := range logs {
		if l.ID == "" {
			t.Error("expected generated id for log entry")
		}
	}
}

func TestSeedWelcomeDeck(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SeedWelcomeDeck(ctx); err != nil {
		t.Fatalf("failed to seed welcome deck: %v", err)
	}
	cards, err := db.DeckCards(ctx, WelcomeDeckID)
	if err != nil {
		t.Fatalf("failed to get welcome cards: %v", err)
	}
	if len(cards) == 0 {
		t.Fatal("expected welcome deck to have cards")
	}

	// Seeding twice must not duplicate cards.
	if err := db.SeedWelcomeDeck(ctx); err != nil {
		t.Fatalf("failed to re-seed welcome deck: %v", err)
	}
	again, err := db.DeckCards(ctx, WelcomeDeckID)
	if err != nil {
		t.Fatalf("failed to get welcome cards after re-seed: %v", err)
	}
	if len(again) != len(cards) {
		t.Errorf("expected %d cards after re-seed, got %d", len(cards), len(again))
	}
}
