package models

import "time"

// RecordSummary aggregates a learner's review records at a point in time.
type RecordSummary struct {
	TotalItems    int     `db:"total_items"`
	DueNow        int     `db:"due_now"`
	NewItems      int     `db:"new_items"`
	LearningItems int     `db:"learning_items"`
	ReviewItems   int     `db:"review_items"`
	MasteredItems int     `db:"mastered_items"`
	AvgEaseFactor float64 `db:"avg_ease_factor"`
}

// AccuracyBucket is one day of review outcomes, used to chart accuracy over time.
type AccuracyBucket struct {
	Day     time.Time `json:"day"`
	Reviews int       `json:"reviews"`
	Correct int       `json:"correct"` // Reviews graded at or above the pass threshold
}

// LearnerReport is the trend view exposed to the insight aggregator. It is
// derived entirely from persisted records and the scoring event log.
type LearnerReport struct {
	LearnerID       string           `json:"learner_id"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Summary         RecordSummary    `json:"summary"`
	TotalReviews    int              `json:"total_reviews"`
	Accuracy        float64          `json:"accuracy"`         // Lifetime share of passing reviews, 0-1
	LapseRate       float64          `json:"lapse_rate"`       // Failed reviews per review, 0-1
	MasteryVelocity float64          `json:"mastery_velocity"` // Items mastered per day since first review
	DailyAccuracy   []AccuracyBucket `json:"daily_accuracy"`
}
