package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/noah-isme/shift-bots/internal/repository"
	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

// EventLister reads events from the calendar provider.
type EventLister interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
}

// EventListerFactory builds a provider client bound to a token source.
type EventListerFactory func(ctx context.Context, ts oauth2.TokenSource) (EventLister, error)

type tokenSourceProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// GoogleEventListerFactory creates Calendar v3 clients.
func GoogleEventListerFactory(ctx context.Context, ts oauth2.TokenSource) (EventLister, error) {
	return repository.NewGoogleCalendarRepository(ctx, option.WithTokenSource(ts))
}

// CalendarServiceConfig wires the calendar service collaborators.
type CalendarServiceConfig struct {
	CalendarID  string
	Credentials tokenSourceProvider
	NewLister   EventListerFactory
	Rule        ShiftRule
	Action      ShiftAction
	Metrics     *MetricsService
	Logger      *zap.Logger
	Now         func() time.Time
}

// CalendarService lists today's events and applies the closed shift rule.
type CalendarService struct {
	calendarID  string
	credentials tokenSourceProvider
	newLister   EventListerFactory
	rule        ShiftRule
	action      ShiftAction
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	lister EventLister
}

// NewCalendarService constructs the service.
func NewCalendarService(cfg CalendarServiceConfig) *CalendarService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewLister == nil {
		cfg.NewLister = GoogleEventListerFactory
	}
	if cfg.Action == nil {
		cfg.Action = NewLogShiftAction(cfg.Logger)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Rule.markers) == 0 {
		cfg.Rule = NewShiftRule()
	}
	return &CalendarService{
		calendarID:  cfg.CalendarID,
		credentials: cfg.Credentials,
		newLister:   cfg.NewLister,
		rule:        cfg.Rule,
		action:      cfg.Action,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// DayWindow returns 00:00:00 and 23:59:59 UTC of the day containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
	return start, end
}

// TodayEvents lists the current UTC day's events in start-time order.
func (s *CalendarService) TodayEvents(ctx context.Context) ([]*calendar.Event, error) {
	lister, err := s.eventLister(ctx)
	if err != nil {
		return nil, err
	}

	start, end := DayWindow(s.now())
	events, err := lister.ListEvents(ctx, s.calendarID, start, end)
	if err != nil {
		s.metrics.RecordEventFetch("provider", OutcomeFailure)
		s.logger.Error("calendar events request failed", zap.String("calendar_id", s.calendarID), zap.Error(err))
		return nil, classifyProviderError(err)
	}

	s.metrics.RecordEventFetch("provider", OutcomeSuccess)
	s.logger.Debug("calendar events fetched", zap.Int("count", len(events)), zap.Time("from", start), zap.Time("to", end))
	return events, nil
}

// CheckShifts runs the configured action once per closed shift and returns them.
// Action failures are logged and do not fail the check.
func (s *CalendarService) CheckShifts(ctx context.Context) ([]*calendar.Event, error) {
	events, err := s.TodayEvents(ctx)
	if err != nil {
		return nil, err
	}

	closed := s.rule.Filter(events)
	for _, ev := range closed {
		if err := s.action.Execute(ctx, ev); err != nil {
			s.logger.Warn("closed shift action failed", zap.String("event_id", ev.Id), zap.Error(err))
		}
	}
	s.metrics.RecordClosedShifts(len(closed))
	return closed, nil
}

func (s *CalendarService) eventLister(ctx context.Context) (EventLister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lister != nil {
		return s.lister, nil
	}

	ts, err := s.credentials.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	lister, err := s.newLister(context.WithoutCancel(ctx), ts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create calendar client")
	}
	s.lister = lister
	return lister, nil
}

func classifyProviderError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return appErrors.Wrap(err, appErrors.ErrAuthentication.Code, appErrors.ErrAuthentication.Status, "calendar credential refresh rejected")
	}
	return appErrors.Wrap(err, appErrors.ErrProviderRequest.Code, appErrors.ErrProviderRequest.Status, "calendar provider request failed")
}
