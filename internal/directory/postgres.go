// Package directory provides storage backends for the registered user directory.
//
// This file implements the PostgreSQL-backed directory.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"whatscoach/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists registered users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres directory based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres directory", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetUserByPhone looks up a user by canonical phone number.
func (s *PostgresStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone_number, name, whatsapp_number, created_at, updated_at FROM users WHERE phone_number = $1`,
		phoneNumber)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetUserByPhone failed", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to query user %s: %w", phoneNumber, err)
	}
	return user, nil
}

// CreateUser inserts a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, phone_number, name, whatsapp_number, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.PhoneNumber, user.Name, nilIfEmpty(user.WhatsAppNumber), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.CreateUser failed", "error", err, "phone", user.PhoneNumber)
		return fmt.Errorf("failed to insert user %s: %w", user.PhoneNumber, err)
	}
	slog.Debug("PostgresStore.CreateUser succeeded", "id", user.ID, "phone", user.PhoneNumber)
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
