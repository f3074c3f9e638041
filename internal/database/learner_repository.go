package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/recall/pkg/models"
)

// LearnerRepository handles database operations for learner preferences
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new repository instance
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// Get returns a learner by id. Returns ErrNotFound for unknown learners.
func (r *LearnerRepository) Get(ctx context.Context, id string) (*models.Learner, error) {
	query := r.db.Rebind(`SELECT * FROM learners WHERE id = ?`)
	var learner models.Learner
	err := r.db.GetContext(ctx, &learner, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner: %w", err)
	}
	return &learner, nil
}

// Upsert creates or updates a learner's preferences.
func (r *LearnerRepository) Upsert(ctx context.Context, learner *models.Learner) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO learners (
			id, batch_size, reminder_hour, reminders_enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			batch_size = EXCLUDED.batch_size,
			reminder_hour = EXCLUDED.reminder_hour,
			reminders_enabled = EXCLUDED.reminders_enabled,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		learner.ID,
		learner.BatchSize,
		learner.ReminderHour,
		learner.RemindersEnabled,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert learner: %w", err)
	}
	return nil
}

// ListForReminder returns learners who opted into reminders at the given hour.
func (r *LearnerRepository) ListForReminder(ctx context.Context, hour int) ([]models.Learner, error) {
	query := r.db.Rebind(`
		SELECT * FROM learners
		WHERE reminders_enabled = ? AND reminder_hour = ?
		ORDER BY id ASC
	`)
	var learners []models.Learner
	err := r.db.SelectContext(ctx, &learners, query, true, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to list learners for reminder: %w", err)
	}
	return learners, nil
}
