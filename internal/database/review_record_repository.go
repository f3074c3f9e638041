package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/recall/pkg/models"
)

// ReviewRecordRepository handles database operations for review records
type ReviewRecordRepository struct {
	db *sqlx.DB
}

// NewReviewRecordRepository creates a new repository instance
func NewReviewRecordRepository(db *sqlx.DB) *ReviewRecordRepository {
	return &ReviewRecordRepository{db: db}
}

// Get returns the record for a specific learner and item.
// Returns ErrNotFound if the pair has never been exposed.
func (r *ReviewRecordRepository) Get(ctx context.Context, learnerID, itemID string) (*models.ReviewRecord, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_records
		WHERE learner_id = ? AND item_id = ?
	`)
	var rec models.ReviewRecord
	err := r.db.GetContext(ctx, &rec, query, learnerID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review record: %w", err)
	}
	return &rec, nil
}

// CreateIfAbsent initializes the record for a first exposure: zero repetitions,
// default ease, immediately due. If the record already exists it is returned
// unchanged, so the call is safe to repeat.
func (r *ReviewRecordRepository) CreateIfAbsent(ctx context.Context, learnerID, itemID string, now time.Time) (*models.ReviewRecord, error) {
	now = now.UTC()
	query := r.db.Rebind(`
		INSERT INTO review_records (
			learner_id, item_id, repetitions, interval_days, ease_factor,
			due_at, lapses, status, revision, created_at, updated_at
		) VALUES (?, ?, 0, 0, 2.5, ?, 0, ?, 1, ?, ?)
		ON CONFLICT (learner_id, item_id) DO NOTHING
	`)
	_, err := r.db.ExecContext(ctx, query, learnerID, itemID, now, models.StatusNew, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create review record: %w", err)
	}
	return r.Get(ctx, learnerID, itemID)
}

// Save atomically writes a scored record. The update only applies when the
// stored revision still matches the revision the record was read at; a stale
// revision yields ErrConflict and the caller must redo the full
// fetch-score-save cycle.
func (r *ReviewRecordRepository) Save(ctx context.Context, rec *models.ReviewRecord) error {
	if err := r.save(ctx, r.db, rec); err != nil {
		return err
	}
	rec.Revision++
	return nil
}

// SaveWithEvent writes a scored record and appends the scoring event in a
// single transaction. The event is committed only if the save wins its
// revision check, never speculatively.
func (r *ReviewRecordRepository) SaveWithEvent(ctx context.Context, rec *models.ReviewRecord, ev *models.ReviewEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.save(ctx, tx, rec); err != nil {
		return err
	}
	if err := appendEvent(ctx, tx, ev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review: %w", err)
	}
	rec.Revision++
	return nil
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

func (r *ReviewRecordRepository) save(ctx context.Context, e execer, rec *models.ReviewRecord) error {
	query := e.Rebind(`
		UPDATE review_records SET
			repetitions = ?,
			interval_days = ?,
			ease_factor = ?,
			due_at = ?,
			last_reviewed_at = ?,
			lapses = ?,
			status = ?,
			revision = revision + 1,
			updated_at = ?
		WHERE learner_id = ? AND item_id = ? AND revision = ?
	`)

	var lastReviewedAt interface{}
	if rec.LastReviewedAt != nil {
		lastReviewedAt = rec.LastReviewedAt.UTC()
	}

	result, err := e.ExecContext(ctx, query,
		rec.Repetitions,
		rec.IntervalDays,
		rec.EaseFactor,
		rec.DueAt.UTC(),
		lastReviewedAt,
		rec.Lapses,
		rec.Status,
		time.Now().UTC(),
		rec.LearnerID,
		rec.ItemID,
		rec.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to save review record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the row vanished or someone else bumped the revision.
		var exists int
		existsQuery := e.Rebind(`SELECT COUNT(*) FROM review_records WHERE learner_id = ? AND item_id = ?`)
		if err := e.GetContext(ctx, &exists, existsQuery, rec.LearnerID, rec.ItemID); err != nil {
			return fmt.Errorf("failed to check review record: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// ListDue returns records due at or before asOf, oldest-overdue first.
// Ties go to the record with more lapses so struggling items surface first,
// then to item id for a deterministic order.
func (r *ReviewRecordRepository) ListDue(ctx context.Context, learnerID string, asOf time.Time, limit int) ([]models.ReviewRecord, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_records
		WHERE learner_id = ? AND due_at <= ?
		ORDER BY due_at ASC, lapses DESC, item_id ASC
		LIMIT ?
	`)
	var records []models.ReviewRecord
	err := r.db.SelectContext(ctx, &records, query, learnerID, asOf.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due records: %w", err)
	}
	return records, nil
}

// CountDue returns the number of records due at or before asOf.
func (r *ReviewRecordRepository) CountDue(ctx context.Context, learnerID string, asOf time.Time) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM review_records
		WHERE learner_id = ? AND due_at <= ?
	`)
	var count int
	err := r.db.GetContext(ctx, &count, query, learnerID, asOf.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to count due records: %w", err)
	}
	return count, nil
}

// ListByLearner streams every record a learner owns, ordered by item id.
// Read-only; used by the insight export.
func (r *ReviewRecordRepository) ListByLearner(ctx context.Context, learnerID string) ([]models.ReviewRecord, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_records
		WHERE learner_id = ?
		ORDER BY item_id ASC
	`)
	var records []models.ReviewRecord
	err := r.db.SelectContext(ctx, &records, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Summary aggregates a learner's records for the insight report.
func (r *ReviewRecordRepository) Summary(ctx context.Context, learnerID string, asOf time.Time) (*models.RecordSummary, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_items,
			COALESCE(SUM(CASE WHEN due_at <= ? THEN 1 ELSE 0 END), 0) AS due_now,
			COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0) AS new_items,
			COALESCE(SUM(CASE WHEN status = 'learning' THEN 1 ELSE 0 END), 0) AS learning_items,
			COALESCE(SUM(CASE WHEN status = 'review' THEN 1 ELSE 0 END), 0) AS review_items,
			COALESCE(SUM(CASE WHEN status = 'mastered' THEN 1 ELSE 0 END), 0) AS mastered_items,
			COALESCE(AVG(ease_factor), 2.5) AS avg_ease_factor
		FROM review_records
		WHERE learner_id = ?
	`)
	var summary models.RecordSummary
	err := r.db.GetContext(ctx, &summary, query, asOf.UTC(), learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize records: %w", err)
	}
	return &summary, nil
}

func appendEvent(ctx context.Context, e execer, ev *models.ReviewEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	query := e.Rebind(`
		INSERT INTO review_events (
			id, learner_id, item_id, quality,
			previous_interval, new_interval, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := e.ExecContext(ctx, query,
		ev.ID,
		ev.LearnerID,
		ev.ItemID,
		ev.Quality,
		ev.PreviousInterval,
		ev.NewInterval,
		ev.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append review event: %w", err)
	}
	return nil
}
