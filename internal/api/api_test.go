package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"whatscoach/internal/coach"
	"whatscoach/internal/models"
	"whatscoach/internal/testutil"
)

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestWebhookStatusBanner(t *testing.T) {
	ts := testutil.NewTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/webhook/whatsapp", nil)
	rr := httptest.NewRecorder()
	ts.Server.Router().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "webhook GET")
	if !strings.Contains(rr.Body.String(), "WhatsApp AI Coach Webhook is running") {
		t.Errorf("unexpected banner: %q", rr.Body.String())
	}
}

func TestWebhookEndToEnd(t *testing.T) {
	ts := testutil.NewTestServer()
	ts.Completion.Reply = "Toller Plan! Wann laufen Sie los?"

	form := url.Values{}
	form.Set("From", "whatsapp:+49151234567")
	form.Set("Body", "Ich möchte jeden Tag laufen")
	form.Set("ProfileName", "Mara")
	rr := postForm(t, ts.Server.Router(), "/api/webhook/whatsapp", form)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "webhook POST")
	if ct := rr.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("expected text/xml acknowledgment, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "<Response></Response>") {
		t.Errorf("expected empty TwiML envelope, got %q", rr.Body.String())
	}

	state := ts.Sessions.GetOrCreate("whatsapp:+49151234567")
	if state.Profile.Name != "Mara" {
		t.Errorf("expected profile name stored, got %q", state.Profile.Name)
	}
	if len(state.History) != 2 {
		t.Fatalf("expected user and assistant turns, got %d", len(state.History))
	}
	if len(state.Profile.Goals) != 1 || state.Profile.Goals[0] != "Ich möchte jeden Tag laufen" {
		t.Errorf("expected goal captured, got %v", state.Profile.Goals)
	}
	if len(ts.Sender.SentMessages) != 1 || ts.Sender.SentMessages[0].Body != "Toller Plan! Wann laufen Sie los?" {
		t.Errorf("expected reply delivered, got %v", ts.Sender.SentMessages)
	}
}

func TestWebhookMalformedEvent(t *testing.T) {
	ts := testutil.NewTestServer()
	form := url.Values{}
	form.Set("Body", "Hallo")
	rr := postForm(t, ts.Server.Router(), "/api/webhook/whatsapp", form)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "webhook without From")
}

func TestWebhookCompletionFailureStillAcknowledges(t *testing.T) {
	ts := testutil.NewTestServer()
	ts.Completion.Err = errors.New("completion exploded")

	form := url.Values{}
	form.Set("From", "whatsapp:+49151234567")
	form.Set("Body", "Hallo")
	rr := postForm(t, ts.Server.Router(), "/api/webhook/whatsapp", form)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "webhook with failing completion")
	if !strings.Contains(rr.Body.String(), "<Response></Response>") {
		t.Errorf("expected TwiML acknowledgment, got %q", rr.Body.String())
	}
	if len(ts.Sender.SentMessages) != 1 || ts.Sender.SentMessages[0].Body != coach.ApologyMessage {
		t.Fatalf("expected apology delivery, got %v", ts.Sender.SentMessages)
	}
	if ts.Sender.SentMessages[0].To != "whatsapp:+49151234567" {
		t.Errorf("apology went to wrong address: %q", ts.Sender.SentMessages[0].To)
	}
}

func TestWebhookDeliveryFailureReturns500(t *testing.T) {
	ts := testutil.NewTestServer()
	ts.Completion.Reply = "Antwort"
	ts.Sender.FailBodies = []string{"Antwort"}

	form := url.Values{}
	form.Set("From", "whatsapp:+49151234567")
	form.Set("Body", "Hallo")
	rr := postForm(t, ts.Server.Router(), "/api/webhook/whatsapp", form)

	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "webhook with failing delivery")
	if strings.Contains(rr.Body.String(), "Antwort") {
		t.Error("failure payload must not leak internals")
	}
}

func TestCheckUserUnregistered(t *testing.T) {
	ts := testutil.NewTestServer()
	rr := postJSON(t, ts.Server.Router(), "/api/auth/check-user", models.CheckUserRequest{PhoneNumber: "0151 234567"})

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "check-user miss")
	var resp models.CheckUserResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Exists || resp.User != nil {
		t.Errorf("expected exists=false and nil user, got %+v", resp)
	}
}

func TestCheckUserRegistered(t *testing.T) {
	ts := testutil.NewTestServer()
	register := models.RegisterRequest{PhoneNumber: "+49151234567", Name: "Mara"}
	if rr := postJSON(t, ts.Server.Router(), "/api/auth/register", register); rr.Code != http.StatusOK {
		t.Fatalf("registration failed with status %d", rr.Code)
	}

	// Lookup uses the national form; both must normalize identically.
	rr := postJSON(t, ts.Server.Router(), "/api/auth/check-user", models.CheckUserRequest{PhoneNumber: "0151 234567"})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "check-user hit")

	var resp models.CheckUserResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Exists || resp.User == nil {
		t.Fatalf("expected registered user, got %+v", resp)
	}
	if resp.User.Name != "Mara" || resp.User.PhoneNumber != "+49151234567" {
		t.Errorf("stored fields do not match: %+v", resp.User)
	}
}

func TestCheckUserMissingPhoneNumber(t *testing.T) {
	ts := testutil.NewTestServer()
	rr := postJSON(t, ts.Server.Router(), "/api/auth/check-user", models.CheckUserRequest{})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "check-user without number")
}

func TestRegisterSuccessSendsWelcome(t *testing.T) {
	ts := testutil.NewTestServer()
	rr := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "0151 234567", Name: "Mara"})

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "register")
	var resp models.RegisterResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.UserID == "" {
		t.Errorf("expected success with user ID, got %+v", resp)
	}

	if len(ts.Sender.SentMessages) != 1 {
		t.Fatalf("expected welcome message, got %d deliveries", len(ts.Sender.SentMessages))
	}
	sent := ts.Sender.SentMessages[0]
	if sent.To != "whatsapp:+49151234567" {
		t.Errorf("welcome sent to wrong address: %q", sent.To)
	}
	if !strings.Contains(sent.Body, "Willkommen bei Personal AI Coach, Mara!") {
		t.Errorf("unexpected welcome body: %q", sent.Body)
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	ts := testutil.NewTestServer()
	first := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "+49151234567", Name: "Mara"})
	testutil.AssertHTTPStatus(t, http.StatusOK, first.Code, "first registration")

	// Same number in national form: must collide after normalization.
	second := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "0151 234567", Name: "Jemand"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, second.Code, "duplicate registration")

	// The original record must be unchanged.
	user, err := ts.Users.GetUserByPhone(context.Background(), "+49151234567")
	if err != nil || user == nil {
		t.Fatalf("expected existing user, got %v, %v", user, err)
	}
	if user.Name != "Mara" {
		t.Errorf("duplicate registration altered stored record: %+v", user)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	ts := testutil.NewTestServer()
	rr := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{Name: "Mara"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "register without number")

	rr = postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "+49151234567"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "register without name")
}

func TestRegisterMessagingNotConfigured(t *testing.T) {
	ts := testutil.NewTestServerWithoutMessaging()
	rr := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "+49151234567", Name: "Mara"})

	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "register without messaging config")
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(resp.Error, "WhatsApp configuration error") {
		t.Errorf("expected configuration error message, got %q", resp.Error)
	}

	// Preflight must short-circuit before any record is written.
	user, _ := ts.Users.GetUserByPhone(context.Background(), "+49151234567")
	if user != nil {
		t.Errorf("expected no record persisted, got %+v", user)
	}
}

func TestRegisterWelcomeFailureKeepsRecord(t *testing.T) {
	ts := testutil.NewTestServer()
	welcome := coach.WelcomeMessage("Mara")
	ts.Sender.FailBodies = []string{welcome}

	rr := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "+49151234567", Name: "Mara"})
	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "register with failing welcome")

	// Documented partial success: the record stays even though the welcome
	// message never went out.
	user, err := ts.Users.GetUserByPhone(context.Background(), "+49151234567")
	if err != nil || user == nil {
		t.Fatalf("expected persisted record despite welcome failure, got %v, %v", user, err)
	}
}

func TestRegisterWhatsAppChannelError(t *testing.T) {
	ts := testutil.NewTestServer()
	ts.Sender.Err = fmt.Errorf("%w: Twilio could not find a Channel with the specified From address", models.ErrWhatsAppChannel)

	rr := postJSON(t, ts.Server.Router(), "/api/auth/register", models.RegisterRequest{PhoneNumber: "+49151234567", Name: "Mara"})
	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "register with unprovisioned channel")

	var body models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error != "WhatsApp configuration error. Please contact support." {
		t.Errorf("expected distinguished channel error message, got %q", body.Error)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := testutil.NewTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	ts.Server.Router().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "healthz")
}
