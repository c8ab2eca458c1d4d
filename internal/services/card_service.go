package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/errors"
	"github.com/vytor/snapword/internal/flashcard"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
)

// CreateCardInput is a new word bank entry.
type CreateCardInput struct {
	Word        string `json:"word" validate:"required,max=128"`
	Translation string `json:"translation" validate:"max=256"`
	Example     string `json:"example" validate:"max=1024"`
	Image       string `json:"image"`
}

func (in CreateCardInput) normalized() CreateCardInput {
	in.Word = strings.TrimSpace(in.Word)
	in.Translation = strings.TrimSpace(in.Translation)
	in.Example = strings.TrimSpace(in.Example)
	in.Image = strings.TrimSpace(in.Image)
	return in
}

// CardService manages the word bank.
type CardService interface {
	CreateCard(ctx context.Context, in CreateCardInput) (*models.Card, error)
	GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	ListCards(ctx context.Context, filter models.CardFilter) ([]models.Card, int, error)
	WordBankStats(ctx context.Context) (*models.WordBankStat, error)
}

type cardService struct {
	cards repository.CardRepository
	clock Clock
}

// NewCardService creates a new CardService
func NewCardService(cards repository.CardRepository, clock Clock) CardService {
	return &cardService{cards: cards, clock: clock}
}

func (s *cardService) CreateCard(ctx context.Context, in CreateCardInput) (*models.Card, error) {
	log := logger.FromContext(ctx)
	in = in.normalized()
	if err := validateStruct(in); err != nil {
		log.Debug("rejecting card: %v", err)
		return nil, err
	}

	today := s.clock.Today()
	card := flashcard.Initialize(today).Apply(models.Card{
		ID:          uuid.New(),
		Word:        in.Word,
		Translation: in.Translation,
		Example:     in.Example,
		Image:       in.Image,
		SavedAt:     s.clock.now(),
	})

	if err := s.cards.SaveOne(ctx, card); err != nil {
		log.Error("failed to save card: %v", err)
		return nil, errors.NewUnavailableError("save card", err)
	}
	log.WithField("card_id", card.ID).Info("card saved: word=%s, first review=%s", card.Word, card.NextReviewDate)
	return &card, nil
}

func (s *cardService) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	card, err := s.cards.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("card", id)
		}
		logger.FromContext(ctx).Error("failed to get card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	filled := flashcard.WithDefaults(*card, s.clock.Today())
	return &filled, nil
}

func (s *cardService) DeleteCard(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)
	if err := s.cards.Delete(ctx, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("card", id)
		}
		log.Error("failed to delete card: %v", err)
		return errors.NewUnavailableError("delete card", err)
	}
	log.WithField("card_id", id).Info("card deleted")
	return nil
}

func (s *cardService) ListCards(ctx context.Context, filter models.CardFilter) ([]models.Card, int, error) {
	log := logger.FromContext(ctx)

	cards, err := s.cards.List(ctx, filter)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}
	total, err := s.cards.Count(ctx, filter)
	if err != nil {
		log.Error("failed to count cards: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	today := s.clock.Today()
	for i := range cards {
		cards[i] = flashcard.WithDefaults(cards[i], today)
	}
	return cards, total, nil
}

func (s *cardService) WordBankStats(ctx context.Context) (*models.WordBankStat, error) {
	cards, err := s.cards.LoadAll(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load cards for stats: %v", err)
		return nil, errors.NewInternalError(err)
	}

	today := s.clock.Today()
	stat := &models.WordBankStat{TotalCards: len(cards)}
	for _, c := range cards {
		if s.clock.Location != nil {
			c.SavedAt = c.SavedAt.In(s.clock.Location)
		}
		if models.DateOf(c.SavedAt).Equal(today) {
			stat.AddedToday++
		}
	}
	return stat, nil
}
