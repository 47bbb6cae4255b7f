package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	emailPattern    = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	whatsappPattern = regexp.MustCompile(`^\d{10}$`)
)

// ErrRegistrationImmutable is returned by any attempt to update or delete a
// stored registration.
var ErrRegistrationImmutable = errors.New("registrations cannot be modified once created")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Registration struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string                      `gorm:"not null" json:"name"`
	CollegeName     string                      `gorm:"not null" json:"college_name"`
	Email           string                      `gorm:"uniqueIndex;not null" json:"email"`
	CourseOfStudy   string                      `gorm:"not null" json:"course_of_study"`
	WhatsappNumber  string                      `gorm:"not null" json:"whatsapp_number"`
	SelectedEvents  datatypes.JSONSlice[string] `gorm:"not null" json:"selected_events"`
	TransactionID   string                      `gorm:"uniqueIndex;not null" json:"transaction_id"`
	PaymentProofURL string                      `gorm:"not null" json:"payment_proof_url"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime;<-:create" json:"created_at"`
}

// RegistrationSummary is the dashboard listing view of a Registration. It has
// no payment proof field at all.
type RegistrationSummary struct {
	ID             uuid.UUID                   `json:"id"`
	Name           string                      `json:"name"`
	CollegeName    string                      `json:"college_name"`
	Email          string                      `json:"email"`
	CourseOfStudy  string                      `json:"course_of_study"`
	WhatsappNumber string                      `json:"whatsapp_number"`
	SelectedEvents datatypes.JSONSlice[string] `json:"selected_events"`
	TransactionID  string                      `json:"transaction_id"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// Normalize trims the free-text fields and lower-cases the email.
func (r *Registration) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.CollegeName = strings.TrimSpace(r.CollegeName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.CourseOfStudy = strings.TrimSpace(r.CourseOfStudy)
	r.WhatsappNumber = strings.TrimSpace(r.WhatsappNumber)
	r.TransactionID = strings.TrimSpace(r.TransactionID)
}

// Validate checks a normalized registration against the field rules. It
// returns the first violation found.
func (r *Registration) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", r.Name},
		{"college_name", r.CollegeName},
		{"email", r.Email},
		{"course_of_study", r.CourseOfStudy},
		{"whatsapp_number", r.WhatsappNumber},
		{"transaction_id", r.TransactionID},
		{"payment_proof_url", r.PaymentProofURL},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Field: f.field, Message: "is required"}
		}
	}

	if !emailPattern.MatchString(r.Email) {
		return &ValidationError{Field: "email", Message: "Please provide a valid email"}
	}
	if !whatsappPattern.MatchString(r.WhatsappNumber) {
		return &ValidationError{Field: "whatsapp_number", Message: "Please provide a valid 10-digit phone number"}
	}
	if len(r.SelectedEvents) == 0 {
		return &ValidationError{Field: "selected_events", Message: "At least one event must be selected"}
	}
	return nil
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Normalize()
	return r.Validate()
}

func (r *Registration) BeforeUpdate(tx *gorm.DB) error {
	return ErrRegistrationImmutable
}

func (r *Registration) BeforeDelete(tx *gorm.DB) error {
	return ErrRegistrationImmutable
}
