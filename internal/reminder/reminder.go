package reminder

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/recall/pkg/models"
)

// Notifier delivers a review nudge. Delivery transport lives outside this
// module; failures are logged and the sweep moves on.
type Notifier interface {
	RemindDue(ctx context.Context, learnerID string, dueCount int) error
}

// LearnerSource lists learners who opted into reminders at a given hour.
type LearnerSource interface {
	ListForReminder(ctx context.Context, hour int) ([]models.Learner, error)
}

// DueCounter reports how many items a learner has waiting. The count is
// computed lazily against the supplied time; the sweep never mutates records.
type DueCounter interface {
	CountDue(ctx context.Context, learnerID string, asOf time.Time) (int, error)
}

// Config bounds the sweep to a daytime window so nobody is nudged at 3am.
type Config struct {
	StartHour int
	EndHour   int
}

// DefaultConfig returns the default reminder window.
func DefaultConfig() Config {
	return Config{StartHour: 8, EndHour: 22}
}

// Sweeper periodically checks each opted-in learner's due count and fires a
// reminder when there is something to review.
type Sweeper struct {
	scheduler *gocron.Scheduler
	learners  LearnerSource
	records   DueCounter
	notifier  Notifier
	log       *zap.Logger
	cfg       Config
}

// New creates a sweeper instance.
func New(learners LearnerSource, records DueCounter, notifier Notifier, log *zap.Logger, cfg Config) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		learners:  learners,
		records:   records,
		notifier:  notifier,
		log:       log,
		cfg:       cfg,
	}
}

// Start begins the hourly sweep in a non-blocking manner.
func (s *Sweeper) Start() {
	s.scheduler.Every(1).Hour().Do(s.sweep)
	s.scheduler.StartAsync()
}

// Stop terminates the sweep.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

func (s *Sweeper) sweep() {
	now := time.Now().UTC()
	hour := now.Hour()
	if hour < s.cfg.StartHour || hour > s.cfg.EndHour {
		s.log.Debug("outside reminder window, skipping sweep",
			zap.Int("hour", hour),
			zap.Int("start_hour", s.cfg.StartHour),
			zap.Int("end_hour", s.cfg.EndHour),
		)
		return
	}
	s.RunOnce(context.Background(), now)
}

// RunOnce performs a single sweep for learners whose reminder hour matches
// now. Exposed for manual triggering.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) {
	learners, err := s.learners.ListForReminder(ctx, now.Hour())
	if err != nil {
		s.log.Error("failed to list learners for reminder", zap.Error(err))
		return
	}

	for _, learner := range learners {
		count, err := s.records.CountDue(ctx, learner.ID, now)
		if err != nil {
			s.log.Error("failed to count due items",
				zap.String("learner_id", learner.ID),
				zap.Error(err),
			)
			continue
		}
		if count == 0 {
			continue
		}
		// Don't promise more than one batch worth of work.
		if learner.BatchSize > 0 && count > learner.BatchSize {
			count = learner.BatchSize
		}
		if err := s.notifier.RemindDue(ctx, learner.ID, count); err != nil {
			s.log.Warn("failed to send reminder",
				zap.String("learner_id", learner.ID),
				zap.Error(err),
			)
		}
	}
}
