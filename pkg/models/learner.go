package models

import "time"

// Learner holds per-learner presentation preferences consumed by the batch
// selector and the reminder sweep. Scheduling state itself lives in ReviewRecord.
type Learner struct {
	ID               string    `json:"id" db:"id"`
	BatchSize        int       `json:"batch_size" db:"batch_size"`               // Preferred number of items per review batch
	ReminderHour     int       `json:"reminder_hour" db:"reminder_hour"`         // Local hour (0-23) to nudge the learner
	RemindersEnabled bool      `json:"reminders_enabled" db:"reminders_enabled"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
