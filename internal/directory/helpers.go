package directory

import (
	"database/sql"

	"whatscoach/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanUser scans a User from a single sql.Row.
func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var whatsappNumber sql.NullString
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Name, &whatsappNumber, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.WhatsAppNumber = whatsappNumber.String
	return &u, nil
}
