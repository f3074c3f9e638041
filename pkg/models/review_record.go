package models

import "time"

// ReviewStatus describes where an item sits in a learner's pipeline.
type ReviewStatus string

const (
	// StatusNew means the item has been exposed but never reviewed
	StatusNew ReviewStatus = "new"
	// StatusLearning means the item is in the initial (or post-lapse) learning phase
	StatusLearning ReviewStatus = "learning"
	// StatusReview means the item has survived at least two consecutive successful reviews
	StatusReview ReviewStatus = "review"
	// StatusMastered means the item cleared the configured repetition and interval thresholds
	StatusMastered ReviewStatus = "mastered"
)

// ReviewRecord tracks a learner's scheduling state for a single item using the SM-2 algorithm.
// One record exists per (learner, item) pair, created on first exposure.
type ReviewRecord struct {
	LearnerID      string       `json:"learner_id" db:"learner_id"`
	ItemID         string       `json:"item_id" db:"item_id"`
	Repetitions    int          `json:"repetitions" db:"repetitions"`           // Consecutive successful reviews since last lapse
	IntervalDays   float64      `json:"interval_days" db:"interval_days"`       // Days until the next scheduled review
	EaseFactor     float64      `json:"ease_factor" db:"ease_factor"`           // SM-2 EF parameter, never below the configured floor
	DueAt          time.Time    `json:"due_at" db:"due_at"`                     // Next time the item should be presented
	LastReviewedAt *time.Time   `json:"last_reviewed_at" db:"last_reviewed_at"` // Nil until the first review
	Lapses         int          `json:"lapses" db:"lapses"`                     // Total failed reviews over the record's lifetime
	Status         ReviewStatus `json:"status" db:"status"`
	Revision       int64        `json:"revision" db:"revision"` // Optimistic-concurrency counter, bumped on every save
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}
