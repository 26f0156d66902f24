package dto

import (
	"google.golang.org/api/calendar/v3"

	"github.com/noah-isme/shift-bots/internal/models"
)

// StatusResponse is returned by the root health endpoints.
type StatusResponse struct {
	Message string `json:"message"`
}

// EventsResponse is the /events body when today has events.
type EventsResponse struct {
	Events []*calendar.Event `json:"events"`
}

// CheckShiftsResponse is the /check_shifts body.
type CheckShiftsResponse struct {
	Message      string            `json:"message"`
	ClosedShifts []*calendar.Event `json:"closed_shifts,omitempty"`
}

// EventFeed is what the notifier decodes from the calendar-bot /events call.
// Message is set instead of Events when the day is empty.
type EventFeed struct {
	Events  []models.Event `json:"events"`
	Message string         `json:"message,omitempty"`
}
