package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noah-isme/shift-bots/internal/dto"
	"github.com/noah-isme/shift-bots/internal/models"
	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

const maxFeedBytes = 10 << 20

// EventFeedRepository reads today's events from the calendar-bot over HTTP.
type EventFeedRepository struct {
	baseURL string
	client  *http.Client
}

// NewEventFeedRepository constructs the feed client. A nil client gets the timeout.
func NewEventFeedRepository(baseURL string, client *http.Client, timeout time.Duration) *EventFeedRepository {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &EventFeedRepository{baseURL: baseURL, client: client}
}

// TodayEvents calls GET {baseURL}/events. A {"message": ...} body means no events.
func (r *EventFeedRepository) TodayEvents(ctx context.Context) ([]models.Event, error) {
	url := r.baseURL + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrProviderRequest.Code, appErrors.ErrProviderRequest.Status, "build calendar-bot request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrProviderRequest.Code, appErrors.ErrProviderRequest.Status, "calendar-bot unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBytes))
		return nil, appErrors.Wrap(fmt.Errorf("GET %s: status %d", url, resp.StatusCode),
			appErrors.ErrProviderRequest.Code, appErrors.ErrProviderRequest.Status, "calendar-bot returned non-success status")
	}

	var feed dto.EventFeed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&feed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedUpstream.Code, appErrors.ErrMalformedUpstream.Status, appErrors.ErrMalformedUpstream.Message)
	}
	if feed.Events == nil {
		if feed.Message == "" {
			return nil, appErrors.ErrMalformedUpstream
		}
		return nil, nil
	}
	return feed.Events, nil
}
