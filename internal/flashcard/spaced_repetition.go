package flashcard

import (
	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/models"
)

// Intervals holds the days until the next review, indexed by the stage a
// card reaches after a successful recall.
var Intervals = [...]int{1, 2, 4, 7, 15, 30}

// MasteredHorizon is how far out a mastered card's next date is pushed.
// Due-set logic never reads it.
const MasteredHorizon = 365

// Initialize returns the review state of a card created on today. New cards
// are first due tomorrow, never on their creation day.
func Initialize(today models.Date) models.ReviewFields {
	return models.ReviewFields{
		ReviewStage:    models.StageNew,
		NextReviewDate: today.AddDays(1),
		ReviewCount:    0,
		LastReviewDate: today,
	}
}

// WithDefaults fills review fields missing from cards saved before they
// were initialized. Present fields are kept.
func WithDefaults(card models.Card, today models.Date) models.Card {
	if !card.ReviewStage.Valid() {
		card.ReviewStage = models.StageNew
	}
	if card.NextReviewDate.IsZero() {
		card.NextReviewDate = today.AddDays(1)
	}
	if card.LastReviewDate.IsZero() {
		card.LastReviewDate = today
	}
	return card
}

// Remember advances card one stage after a successful recall. Reaching the
// end of the interval table marks the card mastered.
func Remember(card models.Card, today models.Date) models.Card {
	stage := card.ReviewStage
	if !stage.Valid() {
		stage = models.StageNew
	}
	next := stage + 1
	if int(next) >= len(Intervals) {
		next = models.StageMastered
	}

	card.ReviewStage = next
	if next.Mastered() {
		card.NextReviewDate = today.AddDays(MasteredHorizon)
	} else {
		card.NextReviewDate = today.AddDays(Intervals[next])
	}
	card.ReviewCount++
	card.LastReviewDate = today
	return card
}

// ResetProgress sends card back to the first stage, due again tomorrow.
// ReviewCount is left alone. Mastered cards can be reset too.
func ResetProgress(card models.Card, today models.Date) models.Card {
	card.ReviewStage = models.StageNew
	card.NextReviewDate = today.AddDays(1)
	card.LastReviewDate = today
	return card
}

// IsDue reports whether card should be reviewed on today. Overdue cards are
// due; a card with no next date is treated as due tomorrow.
func IsDue(card models.Card, today models.Date) bool {
	if card.ReviewStage.Mastered() {
		return false
	}
	next := card.NextReviewDate
	if next.IsZero() {
		next = today.AddDays(1)
	}
	return !next.After(today)
}

// Buckets is a partition of a card list. Every input card lands in exactly
// one bucket, in input order.
type Buckets struct {
	Due      []models.Card
	Mastered []models.Card
	Learning []models.Card
}

// Partition classifies cards in a single pass.
func Partition(cards []models.Card, today models.Date) Buckets {
	var b Buckets
	for _, c := range cards {
		switch {
		case c.ReviewStage.Mastered():
			b.Mastered = append(b.Mastered, c)
		case IsDue(c, today):
			b.Due = append(b.Due, c)
		default:
			b.Learning = append(b.Learning, c)
		}
	}
	return b
}

// NextUpcomingDate returns the earliest next review date among learning
// cards, or false when nothing is scheduled.
func NextUpcomingDate(cards []models.Card, today models.Date) (models.Date, bool) {
	var earliest models.Date
	found := false
	for _, c := range Partition(cards, today).Learning {
		next := c.NextReviewDate
		if next.IsZero() {
			next = today.AddDays(1)
		}
		if !found || next.Before(earliest) {
			earliest = next
			found = true
		}
	}
	return earliest, found
}

// Summarize builds the review dashboard for today.
func Summarize(cards []models.Card, today models.Date) models.ReviewSummary {
	b := Partition(cards, today)
	s := models.ReviewSummary{
		Today:    today,
		Due:      len(b.Due),
		Mastered: len(b.Mastered),
		Learning: len(b.Learning),
	}
	if next, ok := NextUpcomingDate(cards, today); ok {
		s.NextReviewDate = &next
	}
	return s
}

// IndexOf returns the position of the card with id in cards, or -1.
func IndexOf(cards []models.Card, id uuid.UUID) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}
