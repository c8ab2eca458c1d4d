package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/errors"
	"github.com/vytor/snapword/internal/flashcard"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
	"github.com/vytor/snapword/internal/repository"
)

// SessionSnapshot is what a client sees of a review pass.
type SessionSnapshot struct {
	ID        uuid.UUID            `json:"id"`
	Current   *models.Card         `json:"current"`
	Position  int                  `json:"position"`
	Remaining int                  `json:"remaining"`
	Done      bool                 `json:"done"`
	Summary   models.ReviewSummary `json:"summary"`
}

// ReviewService runs review passes over the due cards.
type ReviewService interface {
	Summary(ctx context.Context) (*models.ReviewSummary, error)
	StartSession(ctx context.Context) (*SessionSnapshot, error)
	Session(ctx context.Context, id uuid.UUID) (*SessionSnapshot, error)
	// Remember and ResetProgress commit a decision on the current card.
	// cardID guards against acting on a stale view; uuid.Nil skips the check.
	Remember(ctx context.Context, id, cardID uuid.UUID) (*SessionSnapshot, error)
	ResetProgress(ctx context.Context, id, cardID uuid.UUID) (*SessionSnapshot, error)
	// Defer skips the current card for now without changing its schedule.
	Defer(ctx context.Context, id, cardID uuid.UUID) (*SessionSnapshot, error)
	EndSession(ctx context.Context, id uuid.UUID) error
	// PruneSessions drops sessions idle for longer than the TTL.
	PruneSessions(ctx context.Context) int
	// History lists the decisions committed on a card, oldest first.
	History(ctx context.Context, cardID uuid.UUID) ([]models.ReviewLog, error)
}

type reviewSession struct {
	mu       sync.Mutex
	id       uuid.UUID
	queue    *flashcard.Queue
	summary  models.ReviewSummary
	lastUsed atomic.Int64 // unix nanoseconds
}

func (rs *reviewSession) touch(now time.Time) { rs.lastUsed.Store(now.UnixNano()) }

func (rs *reviewSession) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, rs.lastUsed.Load()))
}

func (rs *reviewSession) snapshot() *SessionSnapshot {
	snap := &SessionSnapshot{
		ID:        rs.id,
		Position:  rs.queue.Position(),
		Remaining: rs.queue.Len(),
		Done:      rs.queue.Empty(),
		Summary:   rs.summary,
	}
	if c, ok := rs.queue.Current(); ok {
		snap.Current = &c
	}
	return snap
}

type reviewService struct {
	cards repository.CardRepository
	logs  repository.ReviewLogRepository
	clock Clock
	ttl   time.Duration

	// commitMu serializes decisions across sessions. Taken after a
	// session's own lock, never before.
	commitMu sync.Mutex

	mu       sync.Mutex
	sessions map[uuid.UUID]*reviewSession
}

// NewReviewService creates a new ReviewService. logs may be nil.
func NewReviewService(cards repository.CardRepository, logs repository.ReviewLogRepository, clock Clock, ttl time.Duration) ReviewService {
	return &reviewService{
		cards:    cards,
		logs:     logs,
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*reviewSession),
	}
}

func (s *reviewService) Summary(ctx context.Context) (*models.ReviewSummary, error) {
	cards, err := s.cards.LoadAll(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load cards for summary: %v", err)
		return nil, errors.NewUnavailableError("load cards", err)
	}
	summary := flashcard.Summarize(cards, s.clock.Today())
	return &summary, nil
}

func (s *reviewService) StartSession(ctx context.Context) (*SessionSnapshot, error) {
	log := logger.FromContext(ctx)

	cards, err := s.cards.LoadAll(ctx)
	if err != nil {
		log.Error("failed to load cards for session: %v", err)
		return nil, errors.NewUnavailableError("load cards", err)
	}

	today := s.clock.Today()
	rs := &reviewSession{
		id:      uuid.New(),
		queue:   flashcard.NewQueue(flashcard.Partition(cards, today).Due),
		summary: flashcard.Summarize(cards, today),
	}
	rs.touch(s.clock.now())

	s.mu.Lock()
	s.sessions[rs.id] = rs
	s.mu.Unlock()

	log.WithField("session_id", rs.id).Info("review session started: %d cards due", rs.queue.Len())
	return rs.snapshot(), nil
}

func (s *reviewService) lookup(id uuid.UUID) (*reviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("review session", id)
	}
	if s.ttl > 0 && rs.idle(s.clock.now()) > s.ttl {
		delete(s.sessions, id)
		return nil, errors.NewNotFoundError("review session", id)
	}
	return rs, nil
}

func (s *reviewService) Session(ctx context.Context, id uuid.UUID) (*SessionSnapshot, error) {
	rs, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.touch(s.clock.now())
	return rs.snapshot(), nil
}

// current returns the card at the front of rs, checking it against the
// card the client acted on.
func current(rs *reviewSession, cardID uuid.UUID) (models.Card, error) {
	c, ok := rs.queue.Current()
	if !ok {
		return c, errors.NewConflictError("review session has no cards left")
	}
	if cardID != uuid.Nil && c.ID != cardID {
		return c, errors.NewConflictError("card is not the current card of this session")
	}
	return c, nil
}

func (s *reviewService) Remember(ctx context.Context, id, cardID uuid.UUID) (*SessionSnapshot, error) {
	return s.commit(ctx, id, cardID, models.DecisionRemember, flashcard.Remember)
}

func (s *reviewService) ResetProgress(ctx context.Context, id, cardID uuid.UUID) (*SessionSnapshot, error) {
	return s.commit(ctx, id, cardID, models.DecisionReset, flashcard.ResetProgress)
}

// commit applies a decision as one step: compute the new card, write it,
// reload every card and rebuild the queue. The session lock and the service
// commit lock are held throughout so decisions never interleave, even across
// sessions. If the write fails the queue is left exactly as it was.
func (s *reviewService) commit(ctx context.Context, id, cardID uuid.UUID, decision string, apply func(models.Card, models.Date) models.Card) (*SessionSnapshot, error) {
	rs, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.touch(s.clock.now())

	log := logger.FromContext(ctx).WithFields(map[string]any{
		"session_id": rs.id,
		"decision":   decision,
	})

	cur, err := current(rs, cardID)
	if err != nil {
		log.Warn("rejecting decision: %v", err)
		return nil, err
	}
	log = log.WithField("card_id", cur.ID)

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	cards, err := s.cards.LoadAll(ctx)
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewUnavailableError("load cards", err)
	}

	today := s.clock.Today()
	idx := flashcard.IndexOf(cards, cur.ID)
	if idx < 0 {
		// Deleted behind our back. The store is authoritative, so drop it.
		log.Warn("card no longer exists, rebuilding queue")
		rs.queue.Rebuild(cards, today)
		rs.summary = flashcard.Summarize(cards, today)
		return nil, errors.NewNotFoundError("card", cur.ID)
	}

	before := flashcard.WithDefaults(cards[idx], today)
	if !flashcard.IsDue(before, today) {
		// Another session already moved it on.
		log.Warn("card is no longer due (stage=%s next=%s), rebuilding queue", before.ReviewStage, before.NextReviewDate)
		rs.queue.Rebuild(cards, today)
		rs.summary = flashcard.Summarize(cards, today)
		return nil, errors.NewConflictError("card is no longer due for review")
	}
	updated := apply(before, today)

	if err := s.cards.Replace(ctx, updated); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			log.Warn("card vanished before the write, rebuilding queue")
			remaining := append(append([]models.Card(nil), cards[:idx]...), cards[idx+1:]...)
			rs.queue.Rebuild(remaining, today)
			rs.summary = flashcard.Summarize(remaining, today)
			return nil, errors.NewNotFoundError("card", cur.ID)
		}
		log.Error("failed to save review: %v", err)
		return nil, errors.NewUnavailableError("save review", err)
	}

	fresh, err := s.cards.LoadAll(ctx)
	if err != nil {
		// The write landed; rebuild from the list we already hold.
		log.Warn("failed to reload cards after review, using local copy: %v", err)
		fresh = append([]models.Card(nil), cards...)
		fresh[idx] = updated
	}

	if s.logs != nil {
		entry := models.ReviewLog{
			CardID:      updated.ID,
			Decision:    decision,
			StageBefore: before.ReviewStage,
			StageAfter:  updated.ReviewStage,
			ReviewedOn:  today,
		}
		if err := s.logs.Insert(ctx, entry); err != nil {
			// History is best effort; the decision itself is committed.
			log.Warn("failed to store review log: %v", err)
		}
	}

	rs.queue.Rebuild(fresh, today)
	rs.summary = flashcard.Summarize(fresh, today)

	log.Info("review applied: stage %s -> %s, next=%s, %d left", before.ReviewStage, updated.ReviewStage, updated.NextReviewDate, rs.queue.Len())
	return rs.snapshot(), nil
}

func (s *reviewService) Defer(ctx context.Context, id, cardID uuid.UUID) (*SessionSnapshot, error) {
	rs, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.touch(s.clock.now())

	cur, err := current(rs, cardID)
	if err != nil {
		return nil, err
	}
	rs.queue.Defer()

	logger.FromContext(ctx).WithFields(map[string]any{
		"session_id": rs.id,
		"card_id":    cur.ID,
	}).Debug("card deferred")
	return rs.snapshot(), nil
}

func (s *reviewService) EndSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errors.NewNotFoundError("review session", id)
	}
	delete(s.sessions, id)
	logger.FromContext(ctx).WithField("session_id", id).Info("review session ended")
	return nil
}

func (s *reviewService) PruneSessions(ctx context.Context) int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.clock.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, rs := range s.sessions {
		if rs.idle(now) > s.ttl {
			delete(s.sessions, id)
			pruned++
		}
	}
	if pruned > 0 {
		logger.FromContext(ctx).Info("pruned %d idle review sessions", pruned)
	}
	return pruned
}

func (s *reviewService) History(ctx context.Context, cardID uuid.UUID) ([]models.ReviewLog, error) {
	log := logger.FromContext(ctx).WithField("card_id", cardID)

	if _, err := s.cards.Get(ctx, cardID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("card", cardID)
		}
		log.Error("failed to get card: %v", err)
		return nil, errors.NewUnavailableError("get card", err)
	}
	if s.logs == nil {
		return []models.ReviewLog{}, nil
	}
	entries, err := s.logs.ForCard(ctx, cardID)
	if err != nil {
		log.Error("failed to load review history: %v", err)
		return nil, errors.NewUnavailableError("load review history", err)
	}
	if entries == nil {
		entries = []models.ReviewLog{}
	}
	return entries, nil
}
