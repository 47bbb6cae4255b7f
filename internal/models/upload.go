package models

import (
	"time"

	"github.com/google/uuid"
)

// Upload tracks a stored payment proof file. RegistrationID stays nil until a
// registration referencing the file is created; unclaimed uploads are swept.
type Upload struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Filename       string     `gorm:"uniqueIndex;not null" json:"filename"`
	OriginalName   string     `json:"original_name"`
	Size           int64      `json:"size"`
	ContentType    string     `json:"content_type"`
	RegistrationID *uuid.UUID `gorm:"type:uuid;index" json:"registration_id,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
