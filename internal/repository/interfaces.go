package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/models"
)

// CardRepository is the word bank store the review scheduler reads from and
// writes back to.
type CardRepository interface {
	// LoadAll returns every saved card in insertion order.
	LoadAll(ctx context.Context) ([]models.Card, error)
	// SaveOne appends a new card.
	SaveOne(ctx context.Context, card models.Card) error
	// Replace overwrites the stored card with the same ID. It returns
	// sql.ErrNoRows when no such card exists.
	Replace(ctx context.Context, card models.Card) error
	Get(ctx context.Context, id uuid.UUID) (*models.Card, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.CardFilter) ([]models.Card, error)
	Count(ctx context.Context, filter models.CardFilter) (int, error)
}

// ReviewLogRepository stores the history of committed review decisions.
type ReviewLogRepository interface {
	Insert(ctx context.Context, entry models.ReviewLog) error
	ForCard(ctx context.Context, cardID uuid.UUID) ([]models.ReviewLog, error)
}
