package services

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/errors"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
	"github.com/vytor/snapword/internal/worker"
	"github.com/xuri/excelize/v2"
)

// ImportService bulk-adds cards from word list files. Columns are word,
// translation, example, image; the first row is a header.
type ImportService interface {
	// Import reads a word list and creates its cards right away.
	Import(ctx context.Context, fileName string, data []byte) (*models.ImportResult, error)
	// Enqueue schedules Import on pool and returns the tracking job.
	Enqueue(ctx context.Context, pool *worker.Pool, fileName string, data []byte) (*models.ImportJob, error)
	RunJob(ctx context.Context, jobID uuid.UUID, fileName string, data []byte) error
	Job(ctx context.Context, jobID uuid.UUID) (*models.ImportJob, error)
	// PruneJobs forgets finished jobs older than maxAge.
	PruneJobs(ctx context.Context, maxAge time.Duration) int
}

type importService struct {
	cards   repository.CardRepository
	creator CardService
	clock   Clock

	mu   sync.Mutex
	jobs map[uuid.UUID]*models.ImportJob
}

// NewImportService creates a new ImportService
func NewImportService(cards repository.CardRepository, creator CardService, clock Clock) ImportService {
	return &importService{
		cards:   cards,
		creator: creator,
		clock:   clock,
		jobs:    make(map[uuid.UUID]*models.ImportJob),
	}
}

func (s *importService) Import(ctx context.Context, fileName string, data []byte) (*models.ImportResult, error) {
	log := logger.FromContext(ctx).WithField("file", fileName)

	rows, err := readRows(fileName, data)
	if err != nil {
		log.Warn("failed to read word list: %v", err)
		return nil, errors.NewBadRequestError(err.Error())
	}

	existing, err := s.cards.LoadAll(ctx)
	if err != nil {
		log.Error("failed to load word bank: %v", err)
		return nil, errors.NewUnavailableError("load cards", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(c.Word)] = true
	}

	result := &models.ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Warn("import cancelled: %v", err)
			return result, err
		}

		in := CreateCardInput{
			Word:        cell(row, 0),
			Translation: cell(row, 1),
			Example:     cell(row, 2),
			Image:       cell(row, 3),
		}
		if in == (CreateCardInput{}) {
			continue
		}
		result.Total++

		key := strings.ToLower(in.Word)
		if key != "" && seen[key] {
			result.Skipped++
			continue
		}
		if _, err := s.creator.CreateCard(ctx, in); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", i+1, errors.As(err).Message))
			continue
		}
		seen[key] = true
		result.Created++
	}

	log.Info("import finished: total=%d created=%d skipped=%d failed=%d",
		result.Total, result.Created, result.Skipped, len(result.Errors))
	return result, nil
}

func isHeader(row []string) bool {
	return strings.EqualFold(cell(row, 0), "word")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func readRows(fileName string, data []byte) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".csv":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		var rows [][]string
		for {
			rec, err := r.Read()
			if err == io.EOF {
				return rows, nil
			}
			if err != nil {
				return nil, fmt.Errorf("parse csv: %w", err)
			}
			rows = append(rows, rec)
		}
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet has no sheets")
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q, use .csv or .xlsx", ext)
	}
}

func (s *importService) Enqueue(ctx context.Context, pool *worker.Pool, fileName string, data []byte) (*models.ImportJob, error) {
	log := logger.FromContext(ctx)

	// Reject unreadable files up front instead of failing in the background.
	if _, err := readRows(fileName, data); err != nil {
		log.Warn("rejecting word list %s: %v", fileName, err)
		return nil, errors.NewBadRequestError(err.Error())
	}

	job := &models.ImportJob{
		ID:        uuid.New(),
		FileName:  fileName,
		Status:    models.ImportPending,
		CreatedAt: s.clock.now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	ok := pool.TrySubmit(&worker.ImportCardsJob{
		Importer: s,
		JobID:    job.ID,
		FileName: fileName,
		Data:     data,
	})
	if !ok {
		s.finish(job.ID, nil, fmt.Errorf("import queue is full"))
		log.Warn("import queue is full, dropping %s", fileName)
		return nil, errors.NewUnavailableError("queue import", fmt.Errorf("import queue is full"))
	}

	log.WithField("job_id", job.ID).Info("queued word list import: %s (%d bytes)", fileName, len(data))
	cp := *job
	return &cp, nil
}

func (s *importService) RunJob(ctx context.Context, jobID uuid.UUID, fileName string, data []byte) error {
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = models.ImportRunning
	}
	s.mu.Unlock()

	result, err := s.Import(ctx, fileName, data)
	s.finish(jobID, result, err)
	return err
}

func (s *importService) finish(jobID uuid.UUID, result *models.ImportResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	now := s.clock.now()
	job.FinishedAt = &now
	job.Result = result
	if err != nil {
		job.Status = models.ImportFailed
		job.Error = err.Error()
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			job.Error = appErr.Message
		}
		return
	}
	job.Status = models.ImportDone
}

func (s *importService) Job(ctx context.Context, jobID uuid.UUID) (*models.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, errors.NewNotFoundError("import job", jobID)
	}
	cp := *job
	return &cp, nil
}

func (s *importService) PruneJobs(ctx context.Context, maxAge time.Duration) int {
	cutoff := s.clock.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	if n > 0 {
		logger.FromContext(ctx).Debug("pruned %d finished import jobs", n)
	}
	return n
}
