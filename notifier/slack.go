package notifier

import (
	"context"
	"crypto/md5" //nolint:gosec
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lestrrat-go/slack"
	"github.com/lestrrat-go/slack/objects"
)

var (
	defaultSlackChannel = "releases"
	// SlackUsername is the display name release notifications post as.
	SlackUsername = "Tagmint"
)

// SlackSender interface for dependency injection and testing.
type SlackSender interface {
	SendMessage(ctx context.Context, channel, username, text string, attachment *objects.Attachment) error
}

// Slack posts release messages to a Slack channel. The token comes from
// SLACK_TOKEN.
type Slack struct {
	Channel  string `schema:"-"`
	Title    string `schema:"title"`
	TitleURL string `schema:"url"`
	token    string
	sender   SlackSender // for testing
	logger   *slog.Logger
}

// NewSlack creates a Slack notifier from a slack://channel?title=... URL.
func NewSlack(rawURL string, logger *slog.Logger) (*Slack, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	s := &Slack{Channel: u.Host, logger: logger}
	if err := decoder.Decode(s, u.Query()); err != nil {
		return nil, err
	}

	if s.Channel == "" {
		s.Channel = defaultSlackChannel
	}
	if t := os.Getenv("SLACK_TOKEN"); t != "" {
		s.token = t
	}
	if s.token == "" {
		return nil, fmt.Errorf("slack token is required")
	}

	return s, nil
}

// SetSender sets the slack sender for testing purposes.
func (s *Slack) SetSender(sender SlackSender) {
	s.sender = sender
}

// Send posts message to the configured channel.
func (s *Slack) Send(ctx context.Context, message string) {
	at := s.buildAttachment(message)

	var err error
	if s.sender != nil {
		err = s.sender.SendMessage(ctx, s.Channel, SlackUsername, "", &at)
	} else {
		cl := slack.New(s.token)
		_, err = cl.Chat().PostMessage(s.Channel).Username(SlackUsername).
			Attachment(&at).Text("").Do(ctx)
	}

	if err != nil {
		s.logger.Error("slack postMessage failure", slog.String("error", err.Error()))
	}
}

func (s *Slack) buildAttachment(message string) objects.Attachment {
	var at objects.Attachment
	at.Color = s.genColor()
	at.Text = message

	switch {
	case s.Title != "" && s.TitleURL != "":
		at.Footer = fmt.Sprintf("<%s|%s>/%s", s.TitleURL, s.Title, hostname())
	case s.Title != "":
		at.Footer = fmt.Sprintf("%s/%s", s.Title, hostname())
	default:
		at.Footer = hostname()
	}
	at.Timestamp = objects.Timestamp(time.Now().Unix())

	return at
}

// genColor derives a stable per-host attachment color.
func (s *Slack) genColor() string {
	return strings.ToUpper(fmt.Sprintf("#%x", md5.Sum([]byte(hostname())))[0:7]) //nolint:gosec
}
