package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/errors"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response: %v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return errors.NewBadRequestError("request body is empty")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return errors.NewBadRequestError("request body is empty")
		}
		return errors.NewBadRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.FromContext(r.Context()).Warn("invalid %s: %q", name, raw)
		return uuid.Nil, errors.NewBadRequestError(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func parseCardFilter(r *http.Request) (models.CardFilter, error) {
	q := r.URL.Query()
	filter := models.CardFilter{
		Word:     strings.TrimSpace(q.Get("word")),
		OrderBy:  q.Get("order_by"),
		OrderDir: q.Get("order_dir"),
		Limit:    50,
	}

	if v := q.Get("stage"); v != "" {
		stage, err := models.ParseStage(v)
		if err != nil {
			return filter, errors.NewValidationError("stage", err.Error())
		}
		filter.Stage = &stage
	}
	if v := q.Get("mastered"); v != "" {
		mastered, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.NewValidationError("mastered", "must be true or false")
		}
		filter.Mastered = &mastered
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return filter, errors.NewValidationError("limit", "must be between 1 and 500")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.NewValidationError("offset", "must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

func readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", errors.NewBadRequestError(fmt.Sprintf("missing %q file", field))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errors.NewBadRequestError("failed to read uploaded file")
	}
	if len(data) == 0 {
		return nil, "", errors.NewBadRequestError("uploaded file is empty")
	}
	return data, header.Filename, nil
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil(cards []models.Card) []models.Card {
	if cards == nil {
		return []models.Card{}
	}
	return cards
}
