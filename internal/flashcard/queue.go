package flashcard

import "github.com/vytor/snapword/internal/models"

// Queue orders the due cards of one review pass. It is not safe for
// concurrent use; the owning session serializes access.
type Queue struct {
	cards  []models.Card
	cursor int
}

// NewQueue starts a pass over due, keeping its order.
func NewQueue(due []models.Card) *Queue {
	q := &Queue{}
	q.reset(due)
	return q
}

func (q *Queue) reset(due []models.Card) {
	q.cards = append(make([]models.Card, 0, len(due)), due...)
	q.cursor = 0
}

// Current returns the card under the cursor.
func (q *Queue) Current() (models.Card, bool) {
	if len(q.cards) == 0 {
		return models.Card{}, false
	}
	return q.cards[q.cursor], true
}

func (q *Queue) Len() int      { return len(q.cards) }
func (q *Queue) Empty() bool   { return len(q.cards) == 0 }
func (q *Queue) Position() int { return q.cursor }

// Cards returns a copy of the queued cards in presentation order.
func (q *Queue) Cards() []models.Card {
	return append([]models.Card(nil), q.cards...)
}

// Rebuild replaces the queue with the due set of the freshly loaded cards
// and moves the cursor to the front. Call it after every committed decision.
func (q *Queue) Rebuild(cards []models.Card, today models.Date) {
	q.reset(Partition(cards, today).Due)
}

// Defer moves the current card to the tail without touching its schedule.
// The cursor keeps its index unless it was on the last slot, where it wraps
// to the front so the same card is not shown twice in a row.
func (q *Queue) Defer() {
	n := len(q.cards)
	if n == 0 {
		return
	}
	card := q.cards[q.cursor]
	q.cards = append(q.cards[:q.cursor], q.cards[q.cursor+1:]...)
	q.cards = append(q.cards, card)
	if q.cursor >= n-1 {
		q.cursor = 0
	}
}
