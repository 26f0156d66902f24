package models

import "time"

// ShiftAlert records one closed shift seen by /check_shifts.
type ShiftAlert struct {
	ID         string    `db:"id" json:"id"`
	CalendarID string    `db:"calendar_id" json:"calendar_id"`
	EventID    string    `db:"event_id" json:"event_id"`
	Summary    string    `db:"summary" json:"summary"`
	StartsAt   string    `db:"starts_at" json:"starts_at"`
	DetectedAt time.Time `db:"detected_at" json:"detected_at"`
}
