package repository

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendarRepository lists events through the Calendar v3 API.
type GoogleCalendarRepository struct {
	service *calendar.Service
}

// NewGoogleCalendarRepository builds the Calendar client from the given options,
// typically option.WithTokenSource.
func NewGoogleCalendarRepository(ctx context.Context, opts ...option.ClientOption) (*GoogleCalendarRepository, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleCalendarRepository{service: service}, nil
}

// ListEvents returns every single-instance event between timeMin and timeMax,
// ordered by start time, following all result pages.
func (r *GoogleCalendarRepository) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	call := r.service.Events.List(calendarID).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	var items []*calendar.Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		items = append(items, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", calendarID, err)
	}
	return items, nil
}
