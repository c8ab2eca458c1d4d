package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
	"github.com/vytor/snapword/internal/repository/sqlite"
	"github.com/vytor/snapword/internal/testutil"
)

var today = models.NewDate(2024, time.March, 10)

type CardRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.CardRepository
}

func (s *CardRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewCardRepository(s.db)
}

func (s *CardRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *CardRepositorySuite) save(cards ...models.Card) {
	for _, c := range cards {
		s.Require().NoError(s.repo.SaveOne(context.Background(), c))
	}
}

func (s *CardRepositorySuite) TestSaveAndGet() {
	ctx := context.Background()
	card := testutil.NewCard("apple", models.StageSecond, today)
	card.ReviewCount = 2
	s.save(card)

	got, err := s.repo.Get(ctx, card.ID)
	s.Require().NoError(err)
	s.Assert().Equal(card.ID, got.ID)
	s.Assert().Equal("apple", got.Word)
	s.Assert().Equal(card.Translation, got.Translation)
	s.Assert().Equal(card.Example, got.Example)
	s.Assert().Equal(card.Image, got.Image)
	s.Assert().True(card.SavedAt.Equal(got.SavedAt))
	s.Assert().Equal(models.StageSecond, got.ReviewStage)
	s.Assert().Equal(today, got.NextReviewDate)
	s.Assert().Equal(today.AddDays(-1), got.LastReviewDate)
	s.Assert().Equal(2, got.ReviewCount)
}

func (s *CardRepositorySuite) TestGet_NotFound() {
	_, err := s.repo.Get(context.Background(), uuid.New())
	s.Assert().ErrorIs(err, sql.ErrNoRows)
}

func (s *CardRepositorySuite) TestLoadAll_InsertionOrder() {
	a := testutil.NewCard("a", models.StageNew, today)
	b := testutil.NewCard("b", models.StageNew, today)
	c := testutil.NewCard("c", models.StageNew, today)
	s.save(b, a, c)

	cards, err := s.repo.LoadAll(context.Background())
	s.Require().NoError(err)
	s.Require().Len(cards, 3)
	s.Assert().Equal("b", cards[0].Word)
	s.Assert().Equal("a", cards[1].Word)
	s.Assert().Equal("c", cards[2].Word)
}

func (s *CardRepositorySuite) TestLoadAll_MissingReviewFields() {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO cards (id, word) VALUES (?, ?)`, uuid.New(), "legacy")
	s.Require().NoError(err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO cards (id, word, review_stage, next_review_date) VALUES (?, ?, ?, ?)`,
		uuid.New(), "corrupt", 11, today.String())
	s.Require().NoError(err)

	cards, err := s.repo.LoadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(cards, 2)

	s.Assert().Equal(models.StageNew, cards[0].ReviewStage)
	s.Assert().True(cards[0].NextReviewDate.IsZero())
	s.Assert().True(cards[0].LastReviewDate.IsZero())
	s.Assert().Equal(0, cards[0].ReviewCount)

	s.Assert().Equal(models.StageNew, cards[1].ReviewStage, "out-of-range stage reads as new")
	s.Assert().Equal(today, cards[1].NextReviewDate)
}

func (s *CardRepositorySuite) TestReplace() {
	ctx := context.Background()
	card := testutil.NewCard("apple", models.StageFirst, today)
	other := testutil.NewCard("pear", models.StageFirst, today)
	s.save(card, other)

	card.ReviewStage = models.StageMastered
	card.ReviewCount = 6
	card.NextReviewDate = today.AddDays(365)
	card.LastReviewDate = today
	s.Require().NoError(s.repo.Replace(ctx, card))

	cards, err := s.repo.LoadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(cards, 2)
	s.Assert().Equal(models.StageMastered, cards[0].ReviewStage)
	s.Assert().Equal(6, cards[0].ReviewCount)
	s.Assert().Equal(today.AddDays(365), cards[0].NextReviewDate)
	s.Assert().Equal(models.StageFirst, cards[1].ReviewStage, "other cards are untouched")
}

func (s *CardRepositorySuite) TestReplace_NotFound() {
	err := s.repo.Replace(context.Background(), testutil.NewCard("ghost", models.StageNew, today))
	s.Assert().ErrorIs(err, sql.ErrNoRows)
}

func (s *CardRepositorySuite) TestDelete() {
	ctx := context.Background()
	card := testutil.NewCard("apple", models.StageNew, today)
	s.save(card)

	s.Require().NoError(s.repo.Delete(ctx, card.ID))
	s.Assert().ErrorIs(s.repo.Delete(ctx, card.ID), sql.ErrNoRows)

	n, err := s.repo.Count(ctx, models.CardFilter{})
	s.Require().NoError(err)
	s.Assert().Equal(0, n)
}

func (s *CardRepositorySuite) TestListFilters() {
	ctx := context.Background()
	older := testutil.NewCard("Banana", models.StageMastered, today)
	older.SavedAt = older.SavedAt.Add(-48 * time.Hour)
	newer := testutil.NewCard("bandana", models.StageSecond, today)
	newer.SavedAt = newer.SavedAt.Add(48 * time.Hour)
	plain := testutil.NewCard("cherry", models.StageNew, today)
	s.save(older, newer, plain)

	all, err := s.repo.List(ctx, models.CardFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Assert().Equal("bandana", all[0].Word, "newest first by default")
	s.Assert().Equal("Banana", all[2].Word)

	byWord, err := s.repo.List(ctx, models.CardFilter{Word: "BAN"})
	s.Require().NoError(err)
	s.Assert().Len(byWord, 2)

	mastered := true
	onlyMastered, err := s.repo.List(ctx, models.CardFilter{Mastered: &mastered})
	s.Require().NoError(err)
	s.Require().Len(onlyMastered, 1)
	s.Assert().Equal("Banana", onlyMastered[0].Word)

	notMastered := false
	n, err := s.repo.Count(ctx, models.CardFilter{Mastered: &notMastered})
	s.Require().NoError(err)
	s.Assert().Equal(2, n)

	stage := models.StageSecond
	byStage, err := s.repo.List(ctx, models.CardFilter{Stage: &stage})
	s.Require().NoError(err)
	s.Require().Len(byStage, 1)
	s.Assert().Equal("bandana", byStage[0].Word)

	byName, err := s.repo.List(ctx, models.CardFilter{OrderBy: "word", OrderDir: "asc", Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(byName, 2)
	s.Assert().Equal("Banana", byName[0].Word)
	s.Assert().Equal("bandana", byName[1].Word)
}

func (s *CardRepositorySuite) TestReviewLog() {
	ctx := context.Background()
	card := testutil.NewCard("apple", models.StageNew, today)
	s.save(card)

	logs := sqlite.NewReviewLogRepository(s.db)
	s.Require().NoError(logs.Insert(ctx, models.ReviewLog{
		CardID: card.ID, Decision: models.DecisionRemember,
		StageBefore: models.StageNew, StageAfter: models.StageFirst, ReviewedOn: today,
	}))
	s.Require().NoError(logs.Insert(ctx, models.ReviewLog{
		CardID: card.ID, Decision: models.DecisionReset,
		StageBefore: models.StageFirst, StageAfter: models.StageNew, ReviewedOn: today.AddDays(2),
	}))

	entries, err := logs.ForCard(ctx, card.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Assert().Equal(models.DecisionRemember, entries[0].Decision)
	s.Assert().Equal(models.StageFirst, entries[0].StageAfter)
	s.Assert().Equal(today.AddDays(2), entries[1].ReviewedOn)

	// Deleting the card cascades to its log.
	s.Require().NoError(s.repo.Delete(ctx, card.ID))
	entries, err = logs.ForCard(ctx, card.ID)
	s.Require().NoError(err)
	s.Assert().Empty(entries)
}

func TestCardRepositorySuite(t *testing.T) {
	suite.Run(t, new(CardRepositorySuite))
}
