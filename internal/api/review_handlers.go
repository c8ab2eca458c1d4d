package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/services"
)

type decisionRequest struct {
	CardID uuid.UUID `json:"card_id"`
}

func (s *Server) handleReviewSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ReviewService.Summary(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ReviewService.StartSession(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/review/sessions/"+snap.ID.String())
	writeJSON(w, r, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	snap, err := s.ReviewService.Session(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.ReviewService.EndSession(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCardHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	entries, err := s.ReviewService.History(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

type decisionFunc func(ctx context.Context, id, cardID uuid.UUID) (*services.SessionSnapshot, error)

// decide runs one review decision against the session in the URL.
func (s *Server) decide(w http.ResponseWriter, r *http.Request, name string, fn decisionFunc) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithFields(map[string]any{
		"session_id": id,
		"card_id":    req.CardID,
	}).Debug("review decision: %s", name)

	snap, err := fn(r.Context(), id, req.CardID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, "remember", s.ReviewService.Remember)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, "reset", s.ReviewService.ResetProgress)
}

func (s *Server) handleDefer(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, "defer", s.ReviewService.Defer)
}
