package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// SlackChatRepository posts plain-text messages with a bot token.
type SlackChatRepository struct {
	client *slack.Client
}

// NewSlackChatRepository builds the Slack client. apiURL overrides the Web API base when set.
func NewSlackChatRepository(token, apiURL string) *SlackChatRepository {
	opts := []slack.Option{}
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &SlackChatRepository{client: slack.New(token, opts...)}
}

// PostMessage sends text to channel via chat.postMessage.
func (r *SlackChatRepository) PostMessage(ctx context.Context, channel, text string) (string, error) {
	_, ts, err := r.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("post message to %s: %w", channel, err)
	}
	return ts, nil
}
