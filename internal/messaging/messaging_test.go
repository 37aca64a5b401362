package messaging

import (
	"context"
	"errors"
	"testing"

	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"whatscoach/internal/models"
)

// stubMessageCreator fails every create with a fixed error and records the
// last request for assertions.
type stubMessageCreator struct {
	err        error
	lastParams *twilioApi.CreateMessageParams
}

func (s *stubMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func TestNewTwilioClientMissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_WHATSAPP_NUMBER", "")
	_, err := NewTwilioClient()
	if err == nil {
		t.Error("expected error without credentials, got nil")
	}
}

func TestNewTwilioClientMissingFromNumber(t *testing.T) {
	t.Setenv("TWILIO_WHATSAPP_NUMBER", "")
	_, err := NewTwilioClient(WithAccountSID("AC123"), WithAuthToken("token"))
	if !errors.Is(err, models.ErrMessagingNotConfigured) {
		t.Errorf("expected ErrMessagingNotConfigured, got %v", err)
	}
}

func TestNewTwilioClientWithOptions(t *testing.T) {
	client, err := NewTwilioClient(
		WithAccountSID("AC123"),
		WithAuthToken("token"),
		WithFrom("whatsapp:+14155238886"),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client.from != "whatsapp:+14155238886" {
		t.Errorf("unexpected from address %q", client.from)
	}
}

func TestSendMessageChannelError(t *testing.T) {
	stub := &stubMessageCreator{err: &twilioClient.TwilioRestError{
		Code:    63007,
		Message: "Twilio could not find a Channel with the specified From address",
		Status:  400,
	}}
	client := &TwilioClient{api: stub, from: "whatsapp:+14155238886"}

	err := client.SendMessage(context.Background(), "+49151234567", "Hallo")
	if !errors.Is(err, models.ErrWhatsAppChannel) {
		t.Errorf("expected ErrWhatsAppChannel for Twilio code 63007, got %v", err)
	}
}

func TestSendMessageOtherRestError(t *testing.T) {
	stub := &stubMessageCreator{err: &twilioClient.TwilioRestError{
		Code:    21211,
		Message: "Invalid 'To' Phone Number",
		Status:  400,
	}}
	client := &TwilioClient{api: stub, from: "whatsapp:+14155238886"}

	err := client.SendMessage(context.Background(), "+49151234567", "Hallo")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, models.ErrWhatsAppChannel) {
		t.Errorf("unrelated Twilio errors must not map to ErrWhatsAppChannel, got %v", err)
	}
}

func TestSendMessageQualifiesBareNumber(t *testing.T) {
	stub := &stubMessageCreator{}
	client := &TwilioClient{api: stub, from: "whatsapp:+14155238886"}

	if err := client.SendMessage(context.Background(), "0151 234567", "Hallo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.lastParams == nil || stub.lastParams.To == nil {
		t.Fatal("expected a create request with a destination")
	}
	if got := *stub.lastParams.To; got != "whatsapp:+49151234567" {
		t.Errorf("expected qualified destination whatsapp:+49151234567, got %q", got)
	}
}

func TestMockClientRecordsMessages(t *testing.T) {
	mock := NewMockClient()
	if err := mock.SendMessage(context.Background(), "whatsapp:+49151234567", "Hallo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].Body != "Hallo" {
		t.Errorf("expected recorded message, got %v", mock.SentMessages)
	}
}

func TestMockClientFailBodies(t *testing.T) {
	mock := NewMockClient()
	mock.FailBodies = []string{"kaputt"}
	if err := mock.SendMessage(context.Background(), "whatsapp:+49151234567", "kaputt"); err == nil {
		t.Error("expected configured failure, got nil")
	}
	if err := mock.SendMessage(context.Background(), "whatsapp:+49151234567", "ok"); err != nil {
		t.Errorf("expected other bodies to pass, got %v", err)
	}
}
