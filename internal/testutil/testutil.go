package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/snapword/internal/db"
	"github.com/vytor/snapword/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// The in-memory database lives on a single connection.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB))
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// NewCard builds an initialized card for word, scheduled for next.
func NewCard(word string, stage models.Stage, next models.Date) models.Card {
	return models.Card{
		ID:             uuid.New(),
		Word:           word,
		Translation:    word + "-tr",
		Example:        "This is a " + word + ".",
		Image:          "https://img.example/" + word + ".png",
		SavedAt:        time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC),
		ReviewStage:    stage,
		NextReviewDate: next,
		LastReviewDate: next.AddDays(-1),
	}
}

// FixedClock returns a clock frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
