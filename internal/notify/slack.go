// Package notify posts alert messages to Slack.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oicur0t/hal/pkg/retry"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Credentials identify the bot and the channel alerts go to
type Credentials struct {
	Token   string
	Channel string
}

// LoadCredentials reads a token file holding "<token>,<channel id>"
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read slack token file: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(parts) != 2 {
		return Credentials{}, fmt.Errorf("slack token file %s: expected \"<token>,<channel id>\"", path)
	}
	creds := Credentials{
		Token:   strings.TrimSpace(parts[0]),
		Channel: strings.TrimSpace(parts[1]),
	}
	if creds.Token == "" || creds.Channel == "" {
		return Credentials{}, fmt.Errorf("slack token file %s: token and channel id must not be empty", path)
	}
	return creds, nil
}

// Slack sends messages with chat.postMessage
type Slack struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlack creates a notifier. apiURL overrides the Slack endpoint when set
// and must end with a slash.
func NewSlack(creds Credentials, apiURL string, logger *zap.Logger) *Slack {
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}

	logger.Debug("Slack notifier ready", zap.String("channel", creds.Channel))
	return &Slack{
		client:  slack.New(creds.Token, opts...),
		channel: creds.Channel,
		logger:  logger,
	}
}

// Notify posts message to the channel. An API rejection (ok=false) is
// returned as a permanent error; rate limits, HTTP status and transport
// errors are left retryable.
func (s *Slack) Notify(ctx context.Context, message string) error {
	_, ts, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(message, false))
	if err == nil {
		s.logger.Debug("Posted to Slack", zap.String("channel", s.channel), zap.String("ts", ts))
		return nil
	}

	var rejected slack.SlackErrorResponse
	if errors.As(err, &rejected) {
		return retry.Permanent(fmt.Errorf("slack rejected message: %w", err))
	}

	var limited *slack.RateLimitedError
	if errors.As(err, &limited) {
		s.logger.Debug("Slack rate limit hit", zap.Duration("retry_after", limited.RetryAfter))
	}
	return fmt.Errorf("slack post failed: %w", err)
}
