package domain

import "time"

// Card is the immutable content of a single flashcard. The ID is a
// content hash, unique within its deck; the scheduling core never
// mutates a card.
type Card struct {
	ID    string
	Front string
	Back  string
	Hint  string
}

// Deck is a named collection of cards, typically parsed from one
// markdown file in a source.
type Deck struct {
	ID    string
	Title string
	Cards []Card
}

// LearningState is the coarse phase of a card's repetition lifecycle.
type LearningState string

const (
	StateNew      LearningState = "new"
	StateLearning LearningState = "learning"
	StateReview   LearningState = "review"
)

// IsValid reports whether s is one of the three known states.
func (s LearningState) IsValid() bool {
	return s == StateNew || s == StateLearning || s == StateReview
}

// CardProgress is the per-(user, card) learning record. Interval is in
// minutes while the card is learning and in days once it is in review.
type CardProgress struct {
	CardID        string
	LearningState LearningState
	Interval      float64
	EaseFactor    float64
	NextReview    Stamp
	ReviewCount   int
	LastReviewed  time.Time
}

// RoundStats counts the outcomes of one round of a study session.
type RoundStats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Hints     int `json:"hints"`
}

// SessionState is the resumable checkpoint of an in-progress study
// session. It must round-trip losslessly through storage: a resumed
// session reconstructs the exact card order from CardOrder rather than
// reshuffling.
type SessionState struct {
	CardOrder        []string   `json:"cardOrder"`
	CurrentCardIndex int        `json:"currentCardIndex"`
	CurrentRound     int        `json:"currentRound"`
	Stats            RoundStats `json:"roundStats"`
}

// StudyLog is one persisted study-session record.
type StudyLog struct {
	ID           string
	UserID       string
	DeckID       string
	DurationMS   int64
	CardsStudied int
	Timestamp    time.Time
}
