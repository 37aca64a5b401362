// Package testutil provides common test utilities and helpers for the coach service tests.
package testutil

import (
	"context"
	"testing"

	"whatscoach/internal/api"
	"whatscoach/internal/coach"
	"whatscoach/internal/directory"
	"whatscoach/internal/messaging"
	"whatscoach/internal/models"
	"whatscoach/internal/session"
)

// StubCompletion implements the coach's completion contract with a canned
// reply or error.
type StubCompletion struct {
	Reply string
	Err   error
}

// GenerateReply returns the configured reply or error.
func (s *StubCompletion) GenerateReply(ctx context.Context, systemPrompt, contextSummary string, history []models.Turn) (string, error) {
	return s.Reply, s.Err
}

// TestServer bundles an API server with the fakes behind it so tests can
// assert on deliveries and session state.
type TestServer struct {
	Server     *api.Server
	Sessions   *session.InMemoryStore
	Users      *directory.InMemoryStore
	Sender     *messaging.MockClient
	Completion *StubCompletion
}

// NewTestServer creates a test API server with in-memory dependencies and
// messaging configured.
func NewTestServer() *TestServer {
	sessions := session.NewInMemoryStore()
	users := directory.NewInMemoryStore()
	sender := messaging.NewMockClient()
	completion := &StubCompletion{Reply: "Klingt gut! Was ist Ihr erster Schritt?"}

	c := coach.New(sessions, completion, sender, nil)
	return &TestServer{
		Server:     api.NewServer(c, users, sender, nil, true),
		Sessions:   sessions,
		Users:      users,
		Sender:     sender,
		Completion: completion,
	}
}

// NewTestServerWithoutMessaging creates a test server whose messaging
// transport is not configured, for exercising the registration preflight.
func NewTestServerWithoutMessaging() *TestServer {
	sessions := session.NewInMemoryStore()
	users := directory.NewInMemoryStore()
	completion := &StubCompletion{Reply: "Hallo!"}

	c := coach.New(sessions, completion, messaging.DisabledSender{}, nil)
	return &TestServer{
		Server:     api.NewServer(c, users, messaging.DisabledSender{}, nil, false),
		Sessions:   sessions,
		Users:      users,
		Completion: completion,
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}
