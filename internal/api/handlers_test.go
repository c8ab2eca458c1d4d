package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
	"github.com/vytor/snapword/internal/repository/sqlite"
	"github.com/vytor/snapword/internal/services"
	"github.com/vytor/snapword/internal/testutil"
)

var today = models.NewDate(2024, time.March, 10)

type sqlPinger struct{ db *sql.DB }

func (p sqlPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return stderrors.New("database is locked") }

type ServerSuite struct {
	suite.Suite
	db      *sql.DB
	cards   repository.CardRepository
	server  *Server
	handler http.Handler
}

func (s *ServerSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.cards = sqlite.NewCardRepository(s.db)
	clock := services.Clock{
		Now:      testutil.FixedClock(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)),
		Location: time.UTC,
	}
	cardService := services.NewCardService(s.cards, clock)
	s.server = &Server{
		CardService:   cardService,
		ReviewService: services.NewReviewService(s.cards, sqlite.NewReviewLogRepository(s.db), clock, time.Hour),
		ImportService: services.NewImportService(s.cards, cardService, clock),
		DB:            sqlPinger{s.db},
	}
	s.handler = s.server.Routes()
}

func (s *ServerSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *ServerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *ServerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body errorBody
	s.decode(rec, &body)
	return body.Error.Code
}

func (s *ServerSuite) seedDue(words ...string) []models.Card {
	var out []models.Card
	for _, w := range words {
		c := testutil.NewCard(w, models.StageNew, today)
		s.Require().NoError(s.cards.SaveOne(context.Background(), c))
		out = append(out, c)
	}
	return out
}

func (s *ServerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", nil)
	s.Assert().Equal(http.StatusOK, rec.Code)
	s.Assert().NotEmpty(rec.Header().Get("X-Request-ID"))
	s.Assert().Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = s.do(http.MethodGet, "/readyz", nil)
	s.Assert().Equal(http.StatusOK, rec.Code)

	s.server.DB = failingPinger{}
	rec = s.do(http.MethodGet, "/readyz", nil)
	s.Assert().Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *ServerSuite) TestCardLifecycle() {
	rec := s.do(http.MethodPost, "/cards", map[string]string{"word": "apple", "translation": "maçã"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var card models.Card
	s.decode(rec, &card)
	s.Assert().Equal("apple", card.Word)
	s.Assert().Equal(today.AddDays(1), card.NextReviewDate)
	s.Assert().Equal("/cards/"+card.ID.String(), rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/cards/"+card.ID.String(), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/cards?word=APP", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list listCardsResponse
	s.decode(rec, &list)
	s.Assert().Equal(1, list.Total)
	s.Require().Len(list.Cards, 1)

	rec = s.do(http.MethodGet, "/cards/stats", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var stat models.WordBankStat
	s.decode(rec, &stat)
	s.Assert().Equal(1, stat.TotalCards)
	s.Assert().Equal(1, stat.AddedToday)

	rec = s.do(http.MethodDelete, "/cards/"+card.ID.String(), nil)
	s.Assert().Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/cards/"+card.ID.String(), nil)
	s.Assert().Equal(http.StatusNotFound, rec.Code)
	s.Assert().Equal("NOT_FOUND", s.errorCode(rec))
}

func (s *ServerSuite) TestCardErrors() {
	rec := s.do(http.MethodPost, "/cards", map[string]string{"translation": "maçã"})
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
	s.Assert().Equal("VALIDATION_ERROR", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/cards", map[string]string{"word": "apple", "colour": "red"})
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
	s.Assert().Equal("BAD_REQUEST", s.errorCode(rec))

	rec = s.do(http.MethodGet, "/cards/not-a-uuid", nil)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/cards?limit=0", nil)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/cards?stage=eighth", nil)
	s.Assert().Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestReviewFlow() {
	seeded := s.seedDue("apple", "pear")

	rec := s.do(http.MethodGet, "/review/summary", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var summary models.ReviewSummary
	s.decode(rec, &summary)
	s.Assert().Equal(2, summary.Due)

	rec = s.do(http.MethodPost, "/review/sessions", nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var snap services.SessionSnapshot
	s.decode(rec, &snap)
	s.Require().NotNil(snap.Current)
	s.Assert().Equal(seeded[0].ID, snap.Current.ID)
	base := "/review/sessions/" + snap.ID.String()

	rec = s.do(http.MethodPost, base+"/remember", decisionRequest{CardID: seeded[1].ID})
	s.Assert().Equal(http.StatusConflict, rec.Code)
	s.Assert().Equal("CONFLICT", s.errorCode(rec))

	rec = s.do(http.MethodPost, base+"/defer", decisionRequest{CardID: seeded[0].ID})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &snap)
	s.Assert().Equal(seeded[1].ID, snap.Current.ID)

	rec = s.do(http.MethodPost, base+"/remember", decisionRequest{CardID: seeded[1].ID})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &snap)
	s.Assert().Equal(seeded[0].ID, snap.Current.ID)
	s.Assert().Equal(1, snap.Remaining)

	// An empty body skips the stale-card check.
	rec = s.do(http.MethodPost, base+"/reset", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &snap)
	s.Assert().True(snap.Done)
	s.Assert().Equal(2, snap.Summary.Learning)

	pear, err := s.cards.Get(context.Background(), seeded[1].ID)
	s.Require().NoError(err)
	s.Assert().Equal(models.StageFirst, pear.ReviewStage)
	s.Assert().Equal(today.AddDays(2), pear.NextReviewDate)

	rec = s.do(http.MethodGet, "/cards/"+seeded[1].ID.String()+"/history", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var history []models.ReviewLog
	s.decode(rec, &history)
	s.Require().Len(history, 1)
	s.Assert().Equal(models.DecisionRemember, history[0].Decision)
	s.Assert().Equal(models.StageNew, history[0].StageBefore)
	s.Assert().Equal(models.StageFirst, history[0].StageAfter)

	rec = s.do(http.MethodGet, "/cards/"+uuid.NewString()+"/history", nil)
	s.Assert().Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, base, nil)
	s.Assert().Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, base, nil)
	s.Assert().Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) upload(path, fileName string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	s.Require().NoError(err)
	_, err = fw.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) TestImport() {
	rec := s.upload("/cards/import?wait=true", "words.csv", []byte("word,translation\napple,maçã\npear,pera\n"))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var result models.ImportResult
	s.decode(rec, &result)
	s.Assert().Equal(2, result.Created)

	rec = s.upload("/cards/import", "words.doc", []byte("apple"))
	s.Assert().Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/cards/import/"+uuid.NewString(), nil)
	s.Assert().Equal(http.StatusNotFound, rec.Code)
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}
