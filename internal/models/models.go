// Package models defines the core data structures for the WhatsApp coach service.
//
// It includes conversation state, registered users, and the request/response
// envelopes shared by the API handlers.
package models

import (
	"errors"
	"time"
)

// Role tags a conversation turn with its author.
type Role string

const (
	// RoleUser marks a turn written by the participant.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the coach.
	RoleAssistant Role = "assistant"
	// RoleSystem marks steering instructions, never user-visible.
	RoleSystem Role = "system"
)

// HistoryWindow is the maximum number of turns retained per conversation.
// Older turns are dropped first so token usage stays bounded while recent
// context is preserved.
const HistoryWindow = 15

// Error variables for better error handling and testability
var (
	// ErrMalformedEvent indicates an inbound webhook event missing required fields.
	ErrMalformedEvent = errors.New("inbound event missing required fields")
	// ErrMissingPhoneNumber indicates a request without a phone number.
	ErrMissingPhoneNumber = errors.New("phone number is required")
	// ErrMissingName indicates a registration request without a name.
	ErrMissingName = errors.New("name is required")
	// ErrUserExists indicates a registration conflict on an already registered number.
	ErrUserExists = errors.New("user with this phone number already registered")
	// ErrMessagingNotConfigured indicates the sending address is not configured.
	ErrMessagingNotConfigured = errors.New("messaging sending address not configured")
	// ErrWhatsAppChannel indicates the provider rejected the WhatsApp channel (Twilio error 63007).
	ErrWhatsAppChannel = errors.New("whatsapp channel not available for configured sender")
	// ErrNoReply indicates the completion service returned no usable content.
	ErrNoReply = errors.New("completion returned no reply")
)

// Turn represents one role-tagged message in a conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile holds what the coach knows about a participant outside the
// message history itself.
type Profile struct {
	Name     string    `json:"name,omitempty"`
	Goals    []string  `json:"goals"`
	JoinedAt time.Time `json:"joined_at"`
}

// ConversationState is the per-sender state kept by the session store.
// It lives for the process lifetime only; restarts clear it.
type ConversationState struct {
	History []Turn  `json:"history"`
	Profile Profile `json:"profile"`
}

// User is a registered participant persisted in the user directory.
type User struct {
	ID             string    `json:"id"`
	PhoneNumber    string    `json:"phone_number"`
	Name           string    `json:"name"`
	WhatsAppNumber string    `json:"whatsapp_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InboundMessage is a parsed inbound webhook event.
type InboundMessage struct {
	From        string // transport-qualified sender address, e.g. "whatsapp:+49151234567"
	Body        string
	ProfileName string // optional display name supplied by the transport
}

// Validate checks that the required webhook fields are present.
func (m *InboundMessage) Validate() error {
	if m.From == "" || m.Body == "" {
		return ErrMalformedEvent
	}
	return nil
}

// CheckUserRequest is the payload for the existence-check endpoint.
type CheckUserRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// CheckUserResponse reports whether a phone number is registered.
type CheckUserResponse struct {
	Exists bool  `json:"exists"`
	User   *User `json:"user"`
}

// RegisterRequest is the payload for the registration endpoint.
type RegisterRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
}

// Validate checks registration input before any external call is made.
func (r *RegisterRequest) Validate() error {
	if r.PhoneNumber == "" {
		return ErrMissingPhoneNumber
	}
	if r.Name == "" {
		return ErrMissingName
	}
	return nil
}

// RegisterResponse is the success envelope for the registration endpoint.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// ErrorResponse is the generic error envelope returned by the JSON endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error builds an ErrorResponse with the given message.
func Error(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}
