package service

import (
	"strings"

	"google.golang.org/api/calendar/v3"
)

// DefaultShiftMarkers flag a shift that still needs follow-up.
var DefaultShiftMarkers = []string{"Shift", "Closed"}

// ShiftRule classifies an event title as a closed shift when it contains
// every marker. Matching is case-sensitive literal substring containment.
type ShiftRule struct {
	markers []string
}

// NewShiftRule builds a rule, falling back to DefaultShiftMarkers when none are given.
func NewShiftRule(markers ...string) ShiftRule {
	cleaned := make([]string, 0, len(markers))
	for _, m := range markers {
		if m != "" {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultShiftMarkers...)
	}
	return ShiftRule{markers: cleaned}
}

// Markers returns a copy of the configured markers.
func (r ShiftRule) Markers() []string {
	return append([]string(nil), r.markers...)
}

// Closed reports whether summary contains all markers.
func (r ShiftRule) Closed(summary string) bool {
	if len(r.markers) == 0 {
		return false
	}
	for _, m := range r.markers {
		if !strings.Contains(summary, m) {
			return false
		}
	}
	return true
}

// Filter keeps the closed-shift events in input order.
func (r ShiftRule) Filter(events []*calendar.Event) []*calendar.Event {
	var closed []*calendar.Event
	for _, ev := range events {
		if ev != nil && r.Closed(ev.Summary) {
			closed = append(closed, ev)
		}
	}
	return closed
}
