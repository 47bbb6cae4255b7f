package registration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingFields = errors.New("All fields are required")
	ErrNotFound      = errors.New("Registration not found")
	ErrInvalidID     = errors.New("Invalid registration id")
)

// DuplicateError reports a submission whose email or transaction ID is
// already registered. Field is "email" or "transaction_id", or empty when the
// store did not say which unique index was hit.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "Email or transaction ID already registered"
	}
	return fmt.Sprintf("%s already registered", e.Field)
}

// duplicateKeyField recognises a unique-index violation raised by the insert
// and extracts the column that collided.
//
// sqlite:   UNIQUE constraint failed: registrations.email
// postgres: duplicate key value violates unique constraint "idx_registrations_email"
func duplicateKeyField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique constraint") && !strings.Contains(msg, "duplicate key") {
		return "", false
	}
	switch {
	case strings.Contains(msg, "transaction_id"):
		return "transaction_id", true
	case strings.Contains(msg, "email"):
		return "email", true
	}
	return "", true
}
