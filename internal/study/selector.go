package study

import (
	"math/rand"
	"time"

	"github.com/repcard/repcard/internal/domain"
	"github.com/repcard/repcard/internal/sched"
)

// SelectDue partitions a deck's cards into the due set: cards with no
// progress record (never studied) and cards whose next review is at or
// before now. The result is shuffled independently each call so
// repeated sessions do not present cards in a fixed sequence.
//
// When nothing is due but the deck is non-empty, fallbackAll controls
// whether all cards are presented instead; this keeps a deck studyable
// rather than dead-ending on "nothing due". It is a product policy, not
// an algorithmic requirement, hence the switch.
func SelectDue(cards []domain.Card, progress map[string]domain.CardProgress, now time.Time, fallbackAll bool, rng *rand.Rand) []domain.Card {
	due := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		p, ok := progress[c.ID]
		if !ok || sched.IsDue(p.NextReview, now) {
			due = append(due, c)
		}
	}

	if len(due) == 0 && len(cards) > 0 && fallbackAll {
		due = append(due, cards...)
	}

	rng.Shuffle(len(due), func(i, j int) {
		due[i], due[j] = due[j], due[i]
	})
	return due
}
