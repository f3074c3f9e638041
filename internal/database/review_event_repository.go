package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/recall/pkg/models"
)

// ReviewEventRepository handles the append-only scoring log
type ReviewEventRepository struct {
	db *sqlx.DB
}

// NewReviewEventRepository creates a new repository instance
func NewReviewEventRepository(db *sqlx.DB) *ReviewEventRepository {
	return &ReviewEventRepository{db: db}
}

// Append writes one scoring event. Events are never updated or deleted.
func (r *ReviewEventRepository) Append(ctx context.Context, ev *models.ReviewEvent) error {
	return appendEvent(ctx, r.db, ev)
}

// ListByLearner returns a learner's scoring history in chronological order.
func (r *ReviewEventRepository) ListByLearner(ctx context.Context, learnerID string) ([]models.ReviewEvent, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_events
		WHERE learner_id = ?
		ORDER BY occurred_at ASC, id ASC
	`)
	var events []models.ReviewEvent
	err := r.db.SelectContext(ctx, &events, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review events: %w", err)
	}
	return events, nil
}

// ListByItem returns the scoring history of one learner-item pair in
// chronological order.
func (r *ReviewEventRepository) ListByItem(ctx context.Context, learnerID, itemID string) ([]models.ReviewEvent, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_events
		WHERE learner_id = ? AND item_id = ?
		ORDER BY occurred_at ASC, id ASC
	`)
	var events []models.ReviewEvent
	err := r.db.SelectContext(ctx, &events, query, learnerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review events: %w", err)
	}
	return events, nil
}

// ListSince returns a learner's events at or after the given time, used for
// windowed trend statistics.
func (r *ReviewEventRepository) ListSince(ctx context.Context, learnerID string, since time.Time) ([]models.ReviewEvent, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_events
		WHERE learner_id = ? AND occurred_at >= ?
		ORDER BY occurred_at ASC, id ASC
	`)
	var events []models.ReviewEvent
	err := r.db.SelectContext(ctx, &events, query, learnerID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list review events: %w", err)
	}
	return events, nil
}
