package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/noah-isme/shift-bots/internal/models"
)

// ShiftAction is the side effect run once per closed shift.
type ShiftAction interface {
	Execute(ctx context.Context, event *calendar.Event) error
}

// ShiftActions runs every action and joins their errors.
type ShiftActions []ShiftAction

// Execute implements ShiftAction.
func (a ShiftActions) Execute(ctx context.Context, event *calendar.Event) error {
	var errs []error
	for _, action := range a {
		if err := action.Execute(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogShiftAction records the closed shift in the service log.
type LogShiftAction struct {
	logger *zap.Logger
}

// NewLogShiftAction constructs the default action.
func NewLogShiftAction(logger *zap.Logger) *LogShiftAction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogShiftAction{logger: logger}
}

// Execute implements ShiftAction.
func (a *LogShiftAction) Execute(ctx context.Context, event *calendar.Event) error {
	a.logger.Info("shift still closed, executing business logic",
		zap.String("event_id", event.Id),
		zap.String("summary", eventSummary(event)),
		zap.String("start", eventStart(event)),
	)
	return nil
}

type shiftAlertStore interface {
	Create(ctx context.Context, alert *models.ShiftAlert) error
}

// AlertLogShiftAction writes a ShiftAlert row per closed shift.
type AlertLogShiftAction struct {
	store      shiftAlertStore
	calendarID string
}

// NewAlertLogShiftAction constructs the Postgres-backed action.
func NewAlertLogShiftAction(store shiftAlertStore, calendarID string) *AlertLogShiftAction {
	return &AlertLogShiftAction{store: store, calendarID: calendarID}
}

// Execute implements ShiftAction.
func (a *AlertLogShiftAction) Execute(ctx context.Context, event *calendar.Event) error {
	return a.store.Create(ctx, &models.ShiftAlert{
		CalendarID: a.calendarID,
		EventID:    event.Id,
		Summary:    eventSummary(event),
		StartsAt:   eventStart(event),
	})
}

func eventSummary(event *calendar.Event) string {
	if event.Summary == "" {
		return "No Title"
	}
	return event.Summary
}

func eventStart(event *calendar.Event) string {
	if event.Start == nil {
		return ""
	}
	if event.Start.DateTime != "" {
		return event.Start.DateTime
	}
	return event.Start.Date
}
