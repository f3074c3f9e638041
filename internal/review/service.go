package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/recall/internal/database"
	"github.com/example/recall/internal/sm2"
	"github.com/example/recall/pkg/models"
)

// ErrRetriesExhausted is returned when a submission keeps losing the
// optimistic-concurrency race after the configured number of full
// fetch-score-save retries.
var ErrRetriesExhausted = errors.New("review submission retries exhausted")

// RecordStore is the persistence surface the service depends on. It is
// implemented by database.ReviewRecordRepository; tests substitute their own.
type RecordStore interface {
	Get(ctx context.Context, learnerID, itemID string) (*models.ReviewRecord, error)
	CreateIfAbsent(ctx context.Context, learnerID, itemID string, now time.Time) (*models.ReviewRecord, error)
	SaveWithEvent(ctx context.Context, rec *models.ReviewRecord, ev *models.ReviewEvent) error
	ListDue(ctx context.Context, learnerID string, asOf time.Time, limit int) ([]models.ReviewRecord, error)
}

// Notifier receives mastery transitions. Delivery is fire-and-forget: a
// failed notification never rolls back the scoring transaction.
type Notifier interface {
	ItemMastered(ctx context.Context, learnerID, itemID string) error
}

// SubmitRequest carries one graded answer.
type SubmitRequest struct {
	LearnerID string
	ItemID    string
	Quality   sm2.Quality
	Now       time.Time
}

// SubmitResult reports the record state after a successful submission.
type SubmitResult struct {
	Status       models.ReviewStatus
	DueAt        time.Time
	IntervalDays float64
	Repetitions  int
}

// Service drives the review loop: it hands out due batches and applies graded
// answers through the scheduler engine.
type Service struct {
	records  RecordStore
	engine   *sm2.Engine
	notifier Notifier
	log      *zap.Logger

	// Full-cycle retries on ErrConflict before surfacing failure
	submitRetries int
}

// NewService creates a review service. notifier may be nil when no progression
// system is attached.
func NewService(records RecordStore, engine *sm2.Engine, notifier Notifier, log *zap.Logger, submitRetries int) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if submitRetries < 0 {
		submitRetries = 0
	}
	return &Service{
		records:       records,
		engine:        engine,
		notifier:      notifier,
		log:           log,
		submitRetries: submitRetries,
	}
}

// RequestBatch returns up to batchSize item ids due for review at now, in
// presentation order. An empty or short batch means the learner is caught up;
// not-yet-due items are never pulled forward to fill it.
func (s *Service) RequestBatch(ctx context.Context, learnerID string, now time.Time, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		return nil, nil
	}
	records, err := s.records.ListDue(ctx, learnerID, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build review batch: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ItemID)
	}
	return ids, nil
}

// SubmitAnswer applies one graded answer to the learner's record. The record
// is created on first exposure. On a concurrency conflict the full
// fetch-score-save cycle is retried a bounded number of times; stale state is
// never written. The scoring event is committed together with the record, and
// a mastery transition is reported to the notifier after the fact.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	// Reject bad grades before touching the store, so an invalid submission
	// cannot create a record or burn a revision.
	if !req.Quality.Valid() {
		return nil, fmt.Errorf("%w: got %d", sm2.ErrInvalidQuality, req.Quality)
	}

	for attempt := 0; ; attempt++ {
		rec, err := s.records.Get(ctx, req.LearnerID, req.ItemID)
		if errors.Is(err, database.ErrNotFound) {
			rec, err = s.records.CreateIfAbsent(ctx, req.LearnerID, req.ItemID, req.Now)
		}
		if err != nil {
			return nil, err
		}

		previousStatus := rec.Status
		previousInterval := rec.IntervalDays

		scored, err := s.engine.Score(*rec, req.Quality, req.Now)
		if err != nil {
			return nil, err
		}

		event := &models.ReviewEvent{
			LearnerID:        req.LearnerID,
			ItemID:           req.ItemID,
			Quality:          int(req.Quality),
			PreviousInterval: previousInterval,
			NewInterval:      scored.IntervalDays,
			Timestamp:        req.Now,
		}

		err = s.records.SaveWithEvent(ctx, &scored, event)
		if errors.Is(err, database.ErrConflict) {
			if attempt >= s.submitRetries {
				return nil, fmt.Errorf("%w: %s/%s", ErrRetriesExhausted, req.LearnerID, req.ItemID)
			}
			s.log.Warn("review save conflict, retrying",
				zap.String("learner_id", req.LearnerID),
				zap.String("item_id", req.ItemID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		if previousStatus != models.StatusMastered && scored.Status == models.StatusMastered {
			s.notifyMastered(ctx, req.LearnerID, req.ItemID)
		}

		return &SubmitResult{
			Status:       scored.Status,
			DueAt:        scored.DueAt,
			IntervalDays: scored.IntervalDays,
			Repetitions:  scored.Repetitions,
		}, nil
	}
}

func (s *Service) notifyMastered(ctx context.Context, learnerID, itemID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ItemMastered(ctx, learnerID, itemID); err != nil {
		s.log.Warn("mastery notification failed",
			zap.String("learner_id", learnerID),
			zap.String("item_id", itemID),
			zap.Error(err),
		)
	}
}
