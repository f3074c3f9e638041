package models

import "time"

// ReviewEvent is one entry in the append-only scoring log. An event is written
// only after the corresponding record save commits, so the log replays the exact
// scheduling history of a learner.
type ReviewEvent struct {
	ID               string    `json:"id" db:"id"`
	LearnerID        string    `json:"learner_id" db:"learner_id"`
	ItemID           string    `json:"item_id" db:"item_id"`
	Quality          int       `json:"quality" db:"quality"` // 0-5 recall grade supplied by the learner
	PreviousInterval float64   `json:"previous_interval" db:"previous_interval"`
	NewInterval      float64   `json:"new_interval" db:"new_interval"`
	Timestamp        time.Time `json:"timestamp" db:"occurred_at"`
}
