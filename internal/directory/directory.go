// Package directory provides storage backends for the registered user directory.
//
// It includes an in-memory store for tests and persistent SQLite and
// PostgreSQL stores keyed by the canonical phone number. Lookups for an
// unknown number return (nil, nil); only real storage failures surface as
// errors.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"whatscoach/internal/models"
)

// Store is the user directory capability used by the API handlers.
type Store interface {
	// GetUserByPhone looks up a user by canonical phone number.
	// Returns (nil, nil) when no user is registered under that number.
	GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error)

	// CreateUser inserts a new user record. The caller is expected to have
	// checked for duplicates; a unique-constraint violation still returns
	// an error.
	CreateUser(ctx context.Context, user models.User) error

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for the persistent stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a directory store.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite" so callers can
// pick the matching store without a separate driver setting.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// NewUser builds a User record with a fresh ID and timestamps.
func NewUser(phoneNumber, name, whatsappNumber string) models.User {
	now := time.Now().UTC()
	return models.User{
		ID:             uuid.NewString(),
		PhoneNumber:    phoneNumber,
		Name:           name,
		WhatsAppNumber: whatsappNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// InMemoryStore is a map-backed directory for tests and local development.
type InMemoryStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

// NewInMemoryStore creates an empty in-memory directory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]models.User)}
}

// GetUserByPhone looks up a user by canonical phone number.
func (s *InMemoryStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[phoneNumber]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// CreateUser inserts a new user record.
func (s *InMemoryStore) CreateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.PhoneNumber]; ok {
		return models.ErrUserExists
	}
	s.users[user.PhoneNumber] = user
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
