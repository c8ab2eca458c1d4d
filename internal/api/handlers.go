package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/snapword/internal/errors"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/services"
	"github.com/vytor/snapword/internal/worker"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	CardService    services.CardService
	ReviewService  services.ReviewService
	ImportService  services.ImportService
	ImportPool     *worker.Pool
	DB             Pinger
	MaxImportBytes int64
	RequestTimeout time.Duration
}

type listCardsResponse struct {
	Cards  []models.Card `json:"cards"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	filter, err := parseCardFilter(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Debug("listing cards: word=%q limit=%d offset=%d", filter.Word, filter.Limit, filter.Offset)

	cards, total, err := s.CardService.ListCards(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, listCardsResponse{
		Cards:  nonNil(cards),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCardInput
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.CardService.CreateCard(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/cards/"+card.ID.String())
	writeJSON(w, r, http.StatusCreated, card)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.CardService.GetCard(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.CardService.DeleteCard(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWordBankStats(w http.ResponseWriter, r *http.Request) {
	stat, err := s.CardService.WordBankStats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stat)
}

func (s *Server) handleImportCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	maxBytes := s.MaxImportBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		log.Warn("invalid import upload: %v", err)
		handleError(w, r, errors.NewBadRequestError("expected a multipart upload with a file field no larger than the import limit"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	data, fileName, err := readUpload(r, "file")
	if err != nil {
		handleError(w, r, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" || s.ImportPool == nil {
		result, err := s.ImportService.Import(r.Context(), fileName, data)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, result)
		return
	}

	job, err := s.ImportService.Enqueue(r.Context(), s.ImportPool, fileName, data)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/cards/import/"+job.ID.String())
	writeJSON(w, r, http.StatusAccepted, job)
}

func (s *Server) handleImportJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "jobID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	job, err := s.ImportService.Job(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, job)
}
