package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/repcard/repcard/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// UpsertDeck inserts or updates a deck's metadata.
func (db *DB) UpsertDeck(ctx context.Context, deckID, title string, sourceID sql.NullInt64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (id, title, source_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, source_id = excluded.source_id
	`, deckID, title, sourceID)
	if err != nil {
		return fmt.Errorf("failed to upsert deck %s: %w", deckID, err)
	}
	return nil
}

// ListDecks retrieves all decks with their card counts.
func (db *DB) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title
		FROM decks
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.Title); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// FindDeck resolves a deck by id or, failing that, by exact title.
// Returns nil when no deck matches.
func (db *DB) FindDeck(ctx context.Context, idOrTitle string) (*domain.Deck, error) {
	var d domain.Deck
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title FROM decks WHERE id = ?
	`, idOrTitle).Scan(&d.ID, &d.Title)
	if err == sql.ErrNoRows {
		err = db.conn.QueryRowContext(ctx, `
			SELECT id, title FROM decks WHERE title = ?
		`, idOrTitle).Scan(&d.ID, &d.Title)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deck %s: %w", idOrTitle, err)
	}
	return &d, nil
}

// DecksBySource retrieves the ids of all decks belonging to a source.
func (db *DB) DecksBySource(ctx context.Context, sourceID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM decks WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deck id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteDeck removes a deck and its cards. Progress records are kept:
// they are keyed by content id and revive if the card comes back.
func (db *DB) DeleteDeck(ctx context.Context, deckID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, deckID); err != nil {
		return fmt.Errorf("failed to delete cards of deck %s: %w", deckID, err)
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, deckID); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", deckID, err)
	}
	return nil
}

// InsertCard inserts a new card into a deck.
func (db *DB) InsertCard(ctx context.Context, deckID string, card domain.Card, position int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (deck_id, id, front, back, hint, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`, deckID, card.ID, card.Front, card.Back, card.Hint, position)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// DeleteCard removes a card from a deck by its id.
func (db *DB) DeleteCard(ctx context.Context, deckID, cardID string) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM cards
		WHERE deck_id = ? AND id = ?
	`, deckID, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}

// DeckCards retrieves a deck's cards in their stored order.
func (db *DB) DeckCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, front, back, hint
		FROM cards WHERE deck_id = ?
		ORDER BY position, id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Front, &c.Back, &c.Hint); err != nil {
			return nil, fmt.Errorf("failed to scan card row for deck %s: %w", deckID, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// CardProgress retrieves the user's per-card progress for a deck,
// keyed by card id.
func (db *DB) CardProgress(ctx context.Context, userID, deckID string) (map[string]domain.CardProgress, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, learning_state, interval, ease_factor, next_review, review_count, last_reviewed
		FROM card_progress
		WHERE user_id = ? AND deck_id = ?
	`, userID, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	progress := make(map[string]domain.CardProgress)
	for rows.Next() {
		var p domain.CardProgress
		var state, nextReview string
		var lastReviewed sql.NullTime
		if err := rows.Scan(&p.CardID, &state, &p.Interval, &p.EaseFactor, &nextReview, &p.ReviewCount, &lastReviewed); err != nil {
			return nil, fmt.Errorf("failed to scan progress row for deck %s: %w", deckID, err)
		}
		p.LearningState = domain.LearningState(state)
		p.NextReview = domain.StampFromISO(nextReview)
		if lastReviewed.Valid {
			p.LastReviewed = lastReviewed.Time
		}
		progress[p.CardID] = p
	}
	return progress, rows.Err()
}

// PutCardProgress upserts one card's progress record.
func (db *DB) PutCardProgress(ctx context.Context, userID, deckID string, p domain.CardProgress) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO card_progress (user_id, deck_id, card_id, learning_state, interval, ease_factor, next_review, review_count, last_reviewed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, deck_id, card_id) DO UPDATE SET
			learning_state = excluded.learning_state,
			interval = excluded.interval,
			ease_factor = excluded.ease_factor,
			next_review = excluded.next_review,
			review_count = excluded.review_count,
			last_reviewed = excluded.last_reviewed
	`,
		userID,
		deckID,
		p.CardID,
		string(p.LearningState),
		p.Interval,
		p.EaseFactor,
		p.NextReview.ISO(),
		p.ReviewCount,
		p.LastReviewed,
	)
	if err != nil {
		return fmt.Errorf("failed to put progress for card %s: %w", p.CardID, err)
	}
	return nil
}

// SessionState retrieves the persisted checkpoint for (user, deck), or
// nil when none exists.
func (db *DB) SessionState(ctx context.Context, userID, deckID string) (*domain.SessionState, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx, `
		SELECT payload FROM session_state
		WHERE user_id = ? AND deck_id = ?
	`, userID, deckID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session state for deck %s: %w", deckID, err)
	}

	var st domain.SessionState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, fmt.Errorf("failed to decode session state for deck %s: %w", deckID, err)
	}
	return &st, nil
}

// PutSessionState upserts the checkpoint for (user, deck).
func (db *DB) PutSessionState(ctx context.Context, userID, deckID string, st domain.SessionState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session state for deck %s: %w", deckID, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO session_state (user_id, deck_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, deck_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, userID, deckID, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to put session state for deck %s: %w", deckID, err)
	}
	return nil
}

// ClearSessionState removes the checkpoint for (user, deck).
func (db *DB) ClearSessionState(ctx context.Context, userID, deckID string) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM session_state
		WHERE user_id = ? AND deck_id = ?
	`, userID, deckID)
	if err != nil {
		return fmt.Errorf("failed to clear session state for deck %s: %w", deckID, err)
	}
	return nil
}

// AppendStudyLog appends one study-session record. An empty entry ID
// gets a fresh UUID.
func (db *DB) AppendStudyLog(ctx context.Context, entry domain.StudyLog) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO study_log (id, user_id, deck_id, duration_ms, cards_studied, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, entry.UserID, entry.DeckID, entry.DurationMS, entry.CardsStudied, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append study log: %w", err)
	}
	return nil
}

// StudyLogs retrieves a user's study history, newest first.
func (db *DB) StudyLogs(ctx context.Context, userID string) ([]domain.StudyLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, deck_id, duration_ms, cards_studied, created_at
		FROM study_log
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get study logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.StudyLog
	for rows.Next() {
		var l domain.StudyLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.DeckID, &l.DurationMS, &l.CardsStudied, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan study log row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
