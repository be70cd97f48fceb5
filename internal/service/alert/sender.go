package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"github.com/oshokin/sos-button/internal/config"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/version"
)

// Severity colors of Slack attachments.
const (
	colorDanger  = "danger"
	colorWarning = "warning"
)

// Message is one alert addressed to the emergency contacts.
type Message struct {
	// Title is the headline.
	Title string
	// Text is the body.
	Text string
	// Urgent marks the message as the activation alert itself.
	Urgent bool
	// Fields are short key-value facts shown under the text.
	Fields []Field
	// Contacts are the recipients.
	Contacts []config.Contact
}

// Field is a key-value fact attached to a message.
type Field struct {
	Title string
	Value string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// errWebhookRequired is returned when a Slack sender has no URL.
var errWebhookRequired = errors.New("webhook URL must be provided")

// SlackSender posts messages to a Slack incoming webhook.
type SlackSender struct {
	// webhookURL is the incoming webhook endpoint.
	webhookURL string
	// client is the HTTP client used for posting.
	client *http.Client
}

// NewSlackSender creates a sender posting to webhookURL with the given client.
// A nil client falls back to http.DefaultClient.
func NewSlackSender(webhookURL string, client *http.Client) (*SlackSender, error) {
	if webhookURL == "" {
		return nil, errWebhookRequired
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &SlackSender{
		webhookURL: webhookURL,
		client:     client,
	}, nil
}

// Send posts the message as a webhook attachment.
func (s *SlackSender) Send(ctx context.Context, msg *Message) error {
	color := colorWarning
	if msg.Urgent {
		color = colorDanger
	}

	fields := make([]slack.AttachmentField, 0, len(msg.Fields)+1)
	for _, f := range msg.Fields {
		fields = append(fields, slack.AttachmentField{
			Title: f.Title,
			Value: f.Value,
			Short: true,
		})
	}

	if len(msg.Contacts) > 0 {
		fields = append(fields, slack.AttachmentField{
			Title: "Contacts",
			Value: formatContacts(msg.Contacts),
		})
	}

	webhook := &slack.WebhookMessage{
		Username:  version.UserAgent(),
		IconEmoji: ":rotating_light:",
		Text:      msg.Title,
		Attachments: []slack.Attachment{
			{
				Color:  color,
				Text:   msg.Text,
				Fields: fields,
			},
		},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, webhook); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}

	return nil
}

// LogSender writes messages to the log only.
type LogSender struct{}

// Send logs the message at warning level.
func (LogSender) Send(ctx context.Context, msg *Message) error {
	kvs := []any{
		"text", msg.Text,
		"contacts", formatContacts(msg.Contacts),
	}

	for _, f := range msg.Fields {
		kvs = append(kvs, strings.ToLower(strings.ReplaceAll(f.Title, " ", "_")), f.Value)
	}

	logger.WarnKV(ctx, msg.Title, kvs...)

	return nil
}

// NewSender picks the sender matching the configuration.
//
//nolint:ireturn // The sender kind depends on configuration.
func NewSender(cfg *config.Config, client *http.Client) (Sender, error) {
	if cfg.SlackWebhookURL == "" {
		return LogSender{}, nil
	}

	return NewSlackSender(cfg.SlackWebhookURL, client)
}

// formatContacts renders contacts as a comma separated list.
func formatContacts(contacts []config.Contact) string {
	if len(contacts) == 0 {
		return "<none>"
	}

	names := make([]string, 0, len(contacts))
	for _, c := range contacts {
		names = append(names, c.String())
	}

	return strings.Join(names, ", ")
}
