// Package directory provides storage backends for the registered user directory.
//
// This file implements the SQLite-backed directory.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"whatscoach/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists registered users in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite directory with the given DSN.
// The DSN should be a file path; the parent directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite directory", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")
	return &SQLiteStore{db: db}, nil
}

// GetUserByPhone looks up a user by canonical phone number.
func (s *SQLiteStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone_number, name, whatsapp_number, created_at, updated_at FROM users WHERE phone_number = ?`,
		phoneNumber)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetUserByPhone failed", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to query user %s: %w", phoneNumber, err)
	}
	return user, nil
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, phone_number, name, whatsapp_number, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.PhoneNumber, user.Name, nilIfEmpty(user.WhatsAppNumber), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.CreateUser failed", "error", err, "phone", user.PhoneNumber)
		return fmt.Errorf("failed to insert user %s: %w", user.PhoneNumber, err)
	}
	slog.Debug("SQLiteStore.CreateUser succeeded", "id", user.ID, "phone", user.PhoneNumber)
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
