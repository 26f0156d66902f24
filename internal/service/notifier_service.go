package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-bots/internal/models"
	"github.com/noah-isme/shift-bots/pkg/jobs"
)

// JobTypePostEvents is the queue job that fetches and posts today's events.
const JobTypePostEvents = "post_events"

type eventFeed interface {
	TodayEvents(ctx context.Context) ([]models.Event, error)
}

type chatPoster interface {
	PostMessage(ctx context.Context, channel, text string) (string, error)
}

// PostResult summarises one fetch-and-post run.
type PostResult struct {
	Events    int
	Posted    bool
	Timestamp string
}

// NotifierService relays the calendar-bot's events to a chat channel.
type NotifierService struct {
	feed    eventFeed
	chat    chatPoster
	channel string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotifierService constructs the service.
func NewNotifierService(feed eventFeed, chat chatPoster, channel string, metrics *MetricsService, logger *zap.Logger) *NotifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifierService{feed: feed, chat: chat, channel: channel, metrics: metrics, logger: logger}
}

// FetchEvents never fails: any upstream problem is logged and yields no events.
func (s *NotifierService) FetchEvents(ctx context.Context) []models.Event {
	return s.fetchEvents(ctx, s.logger)
}

func (s *NotifierService) fetchEvents(ctx context.Context, log *zap.Logger) []models.Event {
	events, err := s.feed.TodayEvents(ctx)
	if err != nil {
		s.metrics.RecordEventFetch("calendar-bot", OutcomeFailure)
		log.Error("error fetching events", zap.Error(err))
		return nil
	}
	s.metrics.RecordEventFetch("calendar-bot", OutcomeSuccess)
	return events
}

// FormatEventsMessage renders one block per event, with no leading or trailing newline.
func FormatEventsMessage(events []models.Event) string {
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "ID: %s, \nSummary: %s, \nStart: %s, \nEnd: %s\n", ev.ID, ev.Summary, ev.Start, ev.End)
	}
	return strings.Trim(b.String(), "\n")
}

// PostEvents fetches, formats and posts. Chat errors are logged and swallowed.
func (s *NotifierService) PostEvents(ctx context.Context) PostResult {
	return s.postEvents(ctx, s.logger)
}

func (s *NotifierService) postEvents(ctx context.Context, log *zap.Logger) PostResult {
	events := s.fetchEvents(ctx, log)
	result := PostResult{Events: len(events)}

	message := FormatEventsMessage(events)
	if message == "" {
		s.metrics.RecordChatPost(OutcomeSkipped)
		log.Info("no events to post", zap.String("channel", s.channel))
		return result
	}

	ts, err := s.chat.PostMessage(ctx, s.channel, message)
	if err != nil {
		s.metrics.RecordChatPost(OutcomeFailure)
		log.Error("error posting to chat", zap.String("channel", s.channel), zap.Error(err))
		return result
	}

	s.metrics.RecordChatPost(OutcomeSuccess)
	log.Info("message posted to chat", zap.String("channel", s.channel), zap.Int("events", len(events)), zap.String("ts", ts))
	result.Posted = true
	result.Timestamp = ts
	return result
}

// HandleJob is the queue handler for the notifier. A string payload is the
// id of the request that scheduled the job.
func (s *NotifierService) HandleJob(ctx context.Context, job jobs.Job) error {
	log := s.logger.With(zap.String("job_id", job.ID))
	if reqID, ok := job.Payload.(string); ok && reqID != "" {
		log = log.With(zap.String("request_id", reqID))
	}

	switch job.Type {
	case JobTypePostEvents:
		s.postEvents(ctx, log)
		return nil
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}
