package flashcard_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/snapword/internal/flashcard"
	"github.com/vytor/snapword/internal/models"
)

func dueCards(words ...string) []models.Card {
	cards := make([]models.Card, len(words))
	for i, w := range words {
		cards[i] = models.Card{ID: uuid.New(), Word: w, ReviewStage: models.StageFirst, NextReviewDate: day}
	}
	return cards
}

func words(cards []models.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Word
	}
	return out
}

func current(t *testing.T, q *flashcard.Queue) string {
	t.Helper()
	c, ok := q.Current()
	require.True(t, ok)
	return c.Word
}

func TestQueue_Empty(t *testing.T) {
	q := flashcard.NewQueue(nil)

	_, ok := q.Current()
	assert.False(t, ok)
	assert.True(t, q.Empty())

	q.Defer()
	assert.Equal(t, 0, q.Len())
}

func TestQueue_KeepsSourceOrder(t *testing.T) {
	q := flashcard.NewQueue(dueCards("a", "b", "c"))

	assert.Equal(t, []string{"a", "b", "c"}, words(q.Cards()))
	assert.Equal(t, "a", current(t, q))
	assert.Equal(t, 0, q.Position())
}

func TestQueue_DeferMovesToTail(t *testing.T) {
	q := flashcard.NewQueue(dueCards("a", "b", "c"))

	q.Defer()

	assert.Equal(t, []string{"b", "c", "a"}, words(q.Cards()))
	assert.Equal(t, "b", current(t, q))
}

func TestQueue_DeferCyclesWithoutLoss(t *testing.T) {
	src := dueCards("a", "b", "c", "d")
	q := flashcard.NewQueue(src)

	for i := 1; i <= len(src); i++ {
		q.Defer()
		assert.Equal(t, len(src), q.Len())
		assert.ElementsMatch(t, words(src), words(q.Cards()))
		if i < len(src) {
			assert.NotEqual(t, "a", current(t, q))
		}
	}
	assert.Equal(t, "a", current(t, q), "front card returns after len(queue) defers")
}

func TestQueue_DeferOnLastSlotWraps(t *testing.T) {
	q := flashcard.NewQueue(dueCards("only"))
	q.Defer()
	assert.Equal(t, "only", current(t, q))
	assert.Equal(t, 0, q.Position())
}

func TestQueue_DeferDoesNotTouchSchedule(t *testing.T) {
	src := dueCards("a", "b")
	q := flashcard.NewQueue(src)
	q.Defer()

	for _, c := range q.Cards() {
		i := flashcard.IndexOf(src, c.ID)
		require.NotEqual(t, -1, i)
		assert.Equal(t, src[i], c)
	}
}

func TestQueue_NewQueueCopiesInput(t *testing.T) {
	src := dueCards("a", "b")
	q := flashcard.NewQueue(src)
	q.Defer()

	assert.Equal(t, []string{"a", "b"}, words(src))
}

func TestQueue_RebuildDropsDecidedCards(t *testing.T) {
	store := dueCards("a", "b")
	q := flashcard.NewQueue(flashcard.Partition(store, day).Due)

	store[0] = flashcard.ResetProgress(store[0], day)
	q.Rebuild(store, day)

	assert.Equal(t, []string{"b"}, words(q.Cards()), "a reset card is due tomorrow, not today")
	assert.Equal(t, 0, q.Position())
}

// One pass: three cards due, skip the first, remember the second, skip the
// first again, remember the third.
func TestQueue_ReviewPass(t *testing.T) {
	store := dueCards("one", "two", "three")
	q := flashcard.NewQueue(flashcard.Partition(store, day).Due)

	commit := func() {
		c, ok := q.Current()
		require.True(t, ok)
		i := flashcard.IndexOf(store, c.ID)
		store[i] = flashcard.Remember(store[i], day)
		q.Rebuild(store, day)
	}

	q.Defer()
	require.Equal(t, "two", current(t, q))
	commit()

	require.Equal(t, "one", current(t, q))
	q.Defer()
	require.Equal(t, "three", current(t, q))
	commit()

	assert.Equal(t, []string{"one"}, words(q.Cards()))
	due := flashcard.Partition(store, day).Due
	assert.Equal(t, []string{"one"}, words(due))
}
