package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var cardColumns = []string{
	"id", "word", "translation", "example", "image", "saved_at",
	"review_stage", "next_review_date", "review_count", "last_review_date",
}

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCard reads one card row. NULL review fields stay zero so the
// scheduler can apply its defaults; out-of-range stages are logged and read
// as StageNew.
func scanCard(log *logger.Logger, row rowScanner) (models.Card, error) {
	var (
		c     models.Card
		stage sql.NullInt64
		count sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Word, &c.Translation, &c.Example, &c.Image, &c.SavedAt,
		&stage, &c.NextReviewDate, &count, &c.LastReviewDate); err != nil {
		return c, err
	}
	if stage.Valid {
		st, ok := models.StageFromInt(stage.Int64)
		if !ok {
			log.Warn("card %s has out-of-range review_stage=%d, treating as new", c.ID, stage.Int64)
		}
		c.ReviewStage = st
	}
	if count.Valid {
		c.ReviewCount = int(count.Int64)
	}
	return c, nil
}

func (r *cardRepository) LoadAll(ctx context.Context) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("loading all cards")

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").OrderBy("seq ASC").ToSql()
	if err != nil {
		return nil, err
	}
	cards, err := r.query(ctx, log, query, args...)
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, err
	}
	log.Debug("loaded %d cards", len(cards))
	return cards, nil
}

func (r *cardRepository) SaveOne(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("saving card: id=%s, word=%s", c.ID, c.Word)

	query, args, err := sqlBuilder.Insert("cards").Columns(cardColumns...).
		Values(c.ID, c.Word, c.Translation, c.Example, c.Image, c.SavedAt.UTC(),
			c.ReviewStage, c.NextReviewDate, c.ReviewCount, c.LastReviewDate).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to save card: %v", err)
		return err
	}
	return nil
}

func (r *cardRepository) Replace(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("replacing card: id=%s, stage=%s, next=%s", c.ID, c.ReviewStage, c.NextReviewDate)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, c.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				log.Debug("card not found for replace: id=%s", c.ID)
			}
			return err
		}

		query, args, err := sqlBuilder.Update("cards").SetMap(map[string]any{
			"word":             c.Word,
			"translation":      c.Translation,
			"example":          c.Example,
			"image":            c.Image,
			"review_stage":     c.ReviewStage,
			"next_review_date": c.NextReviewDate,
			"review_count":     c.ReviewCount,
			"last_review_date": c.LastReviewDate,
		}).Where(squirrel.Eq{"id": c.ID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.Error("failed to replace card: %v", err)
			return err
		}
		return nil
	})
}

func (r *cardRepository) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("getting card: id=%s", id)

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanCard(log, r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found: id=%s", id)
		} else {
			log.Error("failed to get card: %v", err)
		}
		return nil, err
	}
	return &c, nil
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("deleting card: id=%s", id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete card: %v", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func applyCardFilter(query squirrel.SelectBuilder, filter models.CardFilter) squirrel.SelectBuilder {
	if w := strings.TrimSpace(filter.Word); w != "" {
		query = query.Where(squirrel.Like{"LOWER(word)": "%" + strings.ToLower(w) + "%"})
	}
	if filter.Stage != nil {
		if *filter.Stage == models.StageNew {
			query = query.Where(squirrel.Or{squirrel.Eq{"review_stage": nil}, squirrel.Eq{"review_stage": models.StageNew}})
		} else {
			query = query.Where(squirrel.Eq{"review_stage": *filter.Stage})
		}
	}
	if filter.Mastered != nil {
		if *filter.Mastered {
			query = query.Where(squirrel.Eq{"review_stage": models.StageMastered})
		} else {
			query = query.Where(squirrel.Or{squirrel.Eq{"review_stage": nil}, squirrel.NotEq{"review_stage": models.StageMastered}})
		}
	}
	return query
}

func (r *cardRepository) List(ctx context.Context, filter models.CardFilter) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing cards with filter: word=%q, order_by=%s", filter.Word, filter.OrderBy)

	query := applyCardFilter(sqlBuilder.Select(cardColumns...).From("cards"), filter)

	// Safe ORDER BY with validation
	orderBy := "saved_at"
	switch filter.OrderBy {
	case "word", "next_review_date", "review_stage":
		orderBy = filter.OrderBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "ASC") {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "seq "+orderDir)

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query = query.Limit(uint64(limit)).Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	cards, err := r.query(ctx, log, sqlStr, args...)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, err
	}
	log.Debug("found %d cards", len(cards))
	return cards, nil
}

func (r *cardRepository) Count(ctx context.Context, filter models.CardFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	sqlStr, args, err := applyCardFilter(sqlBuilder.Select("COUNT(*)").From("cards"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		log.Error("failed to count cards: %v", err)
		return 0, err
	}
	return n, nil
}

func (r *cardRepository) query(ctx context.Context, log *logger.Logger, query string, args ...any) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(log, rows)
		if err != nil {
			log.Error("failed to scan card row: %v", err)
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
