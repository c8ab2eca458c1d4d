package models

import (
	"time"

	"github.com/google/uuid"
)

// Import job states.
const (
	ImportPending = "pending"
	ImportRunning = "running"
	ImportDone    = "done"
	ImportFailed  = "failed"
)

// ImportResult is the outcome of one word list import.
type ImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// ImportJob tracks a word list import running in the background.
type ImportJob struct {
	ID         uuid.UUID     `json:"id"`
	FileName   string        `json:"file_name"`
	Status     string        `json:"status"`
	Result     *ImportResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
