// Package messaging wraps the Twilio API for WhatsApp message delivery.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"whatscoach/internal/models"
	"whatscoach/internal/phone"
)

// twilioChannelErrorCode is Twilio's "channel could not find From address"
// error, raised when the configured sender is not a provisioned WhatsApp
// number. It gets a distinguished user-facing message.
const twilioChannelErrorCode = 63007

// Sender delivers a text message to a transport-qualified destination address.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio WhatsApp client.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Option defines a configuration option for the Twilio WhatsApp client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the WhatsApp sending address, e.g. "whatsapp:+14155238886".
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// messageCreator defines the minimal slice of the Twilio REST API used for
// sending. *api.ApiService satisfies it.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioClient wraps the Twilio REST API for WhatsApp.
type TwilioClient struct {
	api  messageCreator
	from string
}

// NewTwilioClient creates a Twilio WhatsApp client, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER
// environment variables for unset options.
func NewTwilioClient(opts ...Option) (*TwilioClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_WHATSAPP_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" {
		return nil, models.ErrMessagingNotConfigured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioClient{api: client.Api, from: cfg.From}, nil
}

// SendMessage sends a WhatsApp message using the Twilio API. The destination
// may be given as a bare phone number or an already qualified WhatsApp
// address.
func (c *TwilioClient) SendMessage(ctx context.Context, to string, body string) error {
	if !strings.HasPrefix(to, "whatsapp:") {
		to = phone.WhatsAppAddress(to)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	_, err := c.api.CreateMessage(params)
	if err != nil {
		var restErr *twilioClient.TwilioRestError
		if errors.As(err, &restErr) && restErr.Code == twilioChannelErrorCode {
			slog.Error("TwilioClient.SendMessage: WhatsApp channel unavailable", "to", to, "code", restErr.Code)
			return fmt.Errorf("%w: %s", models.ErrWhatsAppChannel, restErr.Message)
		}
		slog.Error("TwilioClient.SendMessage failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	slog.Debug("TwilioClient.SendMessage: message sent", "to", to)
	return nil
}

// DisabledSender is used when no transport is configured. Every send fails
// with the configuration error so callers surface the right taxonomy.
type DisabledSender struct{}

// SendMessage always fails with models.ErrMessagingNotConfigured.
func (DisabledSender) SendMessage(ctx context.Context, to string, body string) error {
	return models.ErrMessagingNotConfigured
}

// SentMessage records one delivered message for test assertions.
type SentMessage struct {
	To   string
	Body string
}

// MockClient implements Sender for tests, recording every send. Setting Err
// makes all sends fail; setting FailBodies makes only sends whose body is
// listed fail, so tests can fail a reply delivery while letting the apology
// through.
type MockClient struct {
	SentMessages []SentMessage
	Err          error
	FailBodies   []string
}

// NewMockClient creates an empty mock sender.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SendMessage records the message, or fails per the mock's configuration.
func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	for _, b := range m.FailBodies {
		if b == body {
			return fmt.Errorf("mock delivery failure for %q", body)
		}
	}
	if m.Err != nil {
		return m.Err
	}
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}
