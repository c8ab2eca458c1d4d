package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
)

type reviewLogRepository struct {
	db *sql.DB
}

// NewReviewLogRepository creates a new ReviewLogRepository implementation
func NewReviewLogRepository(db *sql.DB) repository.ReviewLogRepository {
	return &reviewLogRepository{db: db}
}

func (r *reviewLogRepository) Insert(ctx context.Context, e models.ReviewLog) error {
	log := logger.FromContext(ctx).WithPrefix("review_log_repo")
	log.Debug("inserting review log: card_id=%s, decision=%s", e.CardID, e.Decision)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO review_log (card_id, decision, stage_before, stage_after, reviewed_on)
VALUES (?, ?, ?, ?, ?)
`, e.CardID, e.Decision, e.StageBefore, e.StageAfter, e.ReviewedOn)
	if err != nil {
		log.Error("failed to insert review log: %v", err)
	}
	return err
}

func (r *reviewLogRepository) ForCard(ctx context.Context, cardID uuid.UUID) ([]models.ReviewLog, error) {
	log := logger.FromContext(ctx).WithPrefix("review_log_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT id, card_id, decision, stage_before, stage_after, reviewed_on, created_at
FROM review_log
WHERE card_id = ?
ORDER BY id ASC
`, cardID)
	if err != nil {
		log.Error("failed to query review log: %v", err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.ReviewLog
	for rows.Next() {
		var e models.ReviewLog
		if err := rows.Scan(&e.ID, &e.CardID, &e.Decision, &e.StageBefore, &e.StageAfter, &e.ReviewedOn, &e.CreatedAt); err != nil {
			log.Error("failed to scan review log row: %v", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
