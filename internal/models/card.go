package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is a card's position in the review progression.
type Stage uint8

const (
	StageNew Stage = iota
	StageFirst
	StageSecond
	StageThird
	StageFourth
	StageFifth
	// StageMastered is terminal: mastered cards never come due again.
	StageMastered
)

var stageNames = [...]string{"new", "first", "second", "third", "fourth", "fifth", "mastered"}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
	return stageNames[s]
}

func (s Stage) Valid() bool { return s <= StageMastered }

func (s Stage) Mastered() bool { return s == StageMastered }

// StageFromInt converts a stored stage number. Values outside 0..6 are
// reported as invalid and mapped to StageNew so they stay reviewable.
func StageFromInt(n int64) (Stage, bool) {
	if n < 0 || n > int64(StageMastered) {
		return StageNew, false
	}
	return Stage(n), true
}

// ParseStage accepts either a stage name or its number.
func ParseStage(s string) (Stage, error) {
	for i, name := range stageNames {
		if name == s {
			return Stage(i), nil
		}
	}
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
		if st, ok := StageFromInt(n); ok {
			return st, nil
		}
	}
	return StageNew, fmt.Errorf("unknown stage %q", s)
}

func (s Stage) Value() (driver.Value, error) { return int64(s), nil }

// Scan is lenient: out-of-range numbers decode to StageNew. Callers that care
// should compare against the raw column.
func (s *Stage) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = StageNew
	case int64:
		*s, _ = StageFromInt(v)
	default:
		return fmt.Errorf("cannot scan %T into Stage", src)
	}
	return nil
}

// Card is a saved vocabulary entry together with its review state.
type Card struct {
	ID             uuid.UUID `json:"id"`
	Word           string    `json:"word"`
	Translation    string    `json:"translation"`
	Example        string    `json:"example"`
	Image          string    `json:"image"`
	SavedAt        time.Time `json:"saved_at"`
	ReviewStage    Stage     `json:"review_stage"`
	NextReviewDate Date      `json:"next_review_date"`
	ReviewCount    int       `json:"review_count"`
	LastReviewDate Date      `json:"last_review_date"`
}

// ReviewFields is the review state assigned to a freshly created card.
type ReviewFields struct {
	ReviewStage    Stage `json:"review_stage"`
	NextReviewDate Date  `json:"next_review_date"`
	ReviewCount    int   `json:"review_count"`
	LastReviewDate Date  `json:"last_review_date"`
}

// Apply copies the review fields onto c.
func (f ReviewFields) Apply(c Card) Card {
	c.ReviewStage = f.ReviewStage
	c.NextReviewDate = f.NextReviewDate
	c.ReviewCount = f.ReviewCount
	c.LastReviewDate = f.LastReviewDate
	return c
}

// CardFilter narrows word bank listings.
type CardFilter struct {
	Word     string
	Stage    *Stage
	Mastered *bool
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string
}

// WordBankStat summarizes the word bank.
type WordBankStat struct {
	TotalCards int `json:"total_cards"`
	AddedToday int `json:"added_today"`
}

// ReviewSummary is the per-day review dashboard.
type ReviewSummary struct {
	Today          Date  `json:"today"`
	Due            int   `json:"due"`
	Mastered       int   `json:"mastered"`
	Learning       int   `json:"learning"`
	NextReviewDate *Date `json:"next_review_date"`
}

// Review decisions recorded in the review log.
const (
	DecisionRemember = "remember"
	DecisionReset    = "reset"
)

// ReviewLog records one committed review decision.
type ReviewLog struct {
	ID          int64     `json:"id"`
	CardID      uuid.UUID `json:"card_id"`
	Decision    string    `json:"decision"`
	StageBefore Stage     `json:"stage_before"`
	StageAfter  Stage     `json:"stage_after"`
	ReviewedOn  Date      `json:"reviewed_on"`
	CreatedAt   time.Time `json:"created_at"`
}
