package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/example/recall/internal/sm2"
	"github.com/example/recall/pkg/models"
)

// RecordSource is the read-only record surface the reporter consumes.
type RecordSource interface {
	ListByLearner(ctx context.Context, learnerID string) ([]models.ReviewRecord, error)
	Summary(ctx context.Context, learnerID string, asOf time.Time) (*models.RecordSummary, error)
}

// EventSource is the read-only scoring-log surface the reporter consumes.
type EventSource interface {
	ListByLearner(ctx context.Context, learnerID string) ([]models.ReviewEvent, error)
}

// Reporter derives trend statistics for the insight aggregator. It only reads
// persisted records and the scoring event log; it never participates in
// scheduling decisions.
type Reporter struct {
	records       RecordSource
	events        EventSource
	passThreshold sm2.Quality
}

// NewReporter creates a reporter. passThreshold marks the quality grade at
// which a review counts as passing and should match the engine configuration.
func NewReporter(records RecordSource, events EventSource, passThreshold sm2.Quality) *Reporter {
	return &Reporter{
		records:       records,
		events:        events,
		passThreshold: passThreshold,
	}
}

// LearnerReport computes a learner's trend view as of now: status breakdown,
// lifetime accuracy, lapse rate, mastery velocity, and a per-day accuracy
// series.
func (r *Reporter) LearnerReport(ctx context.Context, learnerID string, now time.Time) (*models.LearnerReport, error) {
	summary, err := r.records.Summary(ctx, learnerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize learner records: %w", err)
	}
	events, err := r.events.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learner history: %w", err)
	}

	report := &models.LearnerReport{
		LearnerID:    learnerID,
		GeneratedAt:  now,
		Summary:      *summary,
		TotalReviews: len(events),
	}
	if len(events) == 0 {
		return report, nil
	}

	passed := 0
	for _, ev := range events {
		if sm2.Quality(ev.Quality) >= r.passThreshold {
			passed++
		}
	}
	report.Accuracy = float64(passed) / float64(len(events))
	report.LapseRate = float64(len(events)-passed) / float64(len(events))
	report.DailyAccuracy = bucketByDay(events, r.passThreshold)

	// Mastery velocity: items mastered per day of study so far.
	studyDays := now.Sub(events[0].Timestamp).Hours() / 24
	if studyDays < 1 {
		studyDays = 1
	}
	report.MasteryVelocity = float64(summary.MasteredItems) / studyDays

	return report, nil
}

// ExportRecords streams a learner's records for external analysis.
func (r *Reporter) ExportRecords(ctx context.Context, learnerID string) ([]models.ReviewRecord, error) {
	return r.records.ListByLearner(ctx, learnerID)
}

// ExportEvents streams a learner's scoring history in chronological order.
func (r *Reporter) ExportEvents(ctx context.Context, learnerID string) ([]models.ReviewEvent, error) {
	return r.events.ListByLearner(ctx, learnerID)
}

// bucketByDay folds chronological events into per-day accuracy buckets.
func bucketByDay(events []models.ReviewEvent, passThreshold sm2.Quality) []models.AccuracyBucket {
	var buckets []models.AccuracyBucket
	for _, ev := range events {
		day := ev.Timestamp.UTC().Truncate(24 * time.Hour)
		if len(buckets) == 0 || !buckets[len(buckets)-1].Day.Equal(day) {
			buckets = append(buckets, models.AccuracyBucket{Day: day})
		}
		b := &buckets[len(buckets)-1]
		b.Reviews++
		if sm2.Quality(ev.Quality) >= passThreshold {
			b.Correct++
		}
	}
	return buckets
}
