package note

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrAccessDenied = errors.New("access denied")
)

// TypeGeneral is the default note type when the author does not pick one.
const TypeGeneral = "general"

// Note is a clinical note a doctor attaches to a patient record.
type Note struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorEmail string    `json:"doctor_email"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
