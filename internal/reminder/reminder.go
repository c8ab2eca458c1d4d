package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vytor/snapword/internal/logger"
	"github.com/vytor/snapword/internal/models"
)

const (
	DefaultPruneEvery   = 10 * time.Minute
	DefaultJobRetention = 24 * time.Hour
)

// Notifier delivers the daily review digest.
type Notifier interface {
	NotifyDue(ctx context.Context, summary models.ReviewSummary) error
}

// LogNotifier writes the digest to the log.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) NotifyDue(ctx context.Context, summary models.ReviewSummary) error {
	log := n.Log
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log.Info("%d cards due for review today (%d learning, %d mastered)", summary.Due, summary.Learning, summary.Mastered)
	return nil
}

// Reviews is the part of the review service the scheduler drives.
type Reviews interface {
	Summary(ctx context.Context) (*models.ReviewSummary, error)
	PruneSessions(ctx context.Context) int
}

// Imports forgets finished import jobs.
type Imports interface {
	PruneJobs(ctx context.Context, maxAge time.Duration) int
}

type Options struct {
	// DigestAt is the local HH:MM time of the daily digest. Empty disables it.
	DigestAt     string
	Location     *time.Location
	PruneEvery   time.Duration
	JobRetention time.Duration
}

// Scheduler runs the daily digest and periodic housekeeping.
type Scheduler struct {
	scheduler *gocron.Scheduler
	reviews   Reviews
	imports   Imports
	notifier  Notifier
	opts      Options
	log       *logger.Logger
}

// New creates a new scheduler and registers its jobs. imports may be nil.
func New(reviews Reviews, imports Imports, notifier Notifier, opts Options) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PruneEvery <= 0 {
		opts.PruneEvery = DefaultPruneEvery
	}
	if opts.JobRetention <= 0 {
		opts.JobRetention = DefaultJobRetention
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}

	s := &Scheduler{
		scheduler: gocron.NewScheduler(opts.Location),
		reviews:   reviews,
		imports:   imports,
		notifier:  notifier,
		opts:      opts,
		log:       logger.Default().WithPrefix("reminder"),
	}

	if opts.DigestAt != "" {
		if _, err := s.scheduler.Every(1).Day().At(opts.DigestAt).Do(s.runDigest); err != nil {
			return nil, fmt.Errorf("schedule daily digest at %q: %w", opts.DigestAt, err)
		}
	}
	if _, err := s.scheduler.Every(opts.PruneEvery).Do(s.runPrune); err != nil {
		return nil, fmt.Errorf("schedule housekeeping: %w", err)
	}
	return s, nil
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	if s.opts.DigestAt != "" {
		s.log.Info("daily digest scheduled at %s %s", s.opts.DigestAt, s.opts.Location)
	} else {
		s.log.Info("daily digest disabled")
	}
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runDigest() {
	ctx := logger.NewContext(context.Background(), s.log)
	if err := s.SendDigest(ctx); err != nil {
		s.log.Error("daily digest failed: %v", err)
	}
}

func (s *Scheduler) runPrune() {
	s.Prune(logger.NewContext(context.Background(), s.log))
}

// SendDigest computes today's review summary and hands it to the notifier.
// Nothing is sent when no cards are due.
func (s *Scheduler) SendDigest(ctx context.Context) error {
	summary, err := s.reviews.Summary(ctx)
	if err != nil {
		return fmt.Errorf("load review summary: %w", err)
	}
	if summary.Due == 0 {
		logger.FromContext(ctx).Debug("no cards due, skipping digest")
		return nil
	}
	return s.notifier.NotifyDue(ctx, *summary)
}

// Prune drops idle review sessions and old import jobs.
func (s *Scheduler) Prune(ctx context.Context) {
	sessions := s.reviews.PruneSessions(ctx)
	jobs := 0
	if s.imports != nil {
		jobs = s.imports.PruneJobs(ctx, s.opts.JobRetention)
	}
	if sessions > 0 || jobs > 0 {
		logger.FromContext(ctx).Debug("housekeeping: %d sessions, %d import jobs removed", sessions, jobs)
	}
}
