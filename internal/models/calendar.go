package models

import "strings"

// Event is the slice of a provider event the notifier relays.
type Event struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   EventTime `json:"start"`
	End     EventTime `json:"end"`
}

// EventTime is either an all-day date or a timestamp with optional zone.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// String renders the set fields as {'date': '2024-01-01'}.
func (t EventTime) String() string {
	var parts []string
	for _, f := range [...]struct{ key, val string }{
		{"date", t.Date},
		{"dateTime", t.DateTime},
		{"timeZone", t.TimeZone},
	} {
		if f.val == "" {
			continue
		}
		parts = append(parts, "'"+f.key+"': '"+f.val+"'")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
