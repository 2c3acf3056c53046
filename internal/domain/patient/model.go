package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

// Patient maps to the patient table. These are clinic-managed records and
// are distinct from patient-role user accounts.
type Patient struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	BirthDate      string    `db:"birth_date" json:"birth_date"`
	Gender         string    `db:"gender" json:"gender"`
	Phone          string    `db:"phone" json:"phone"`
	Address        string    `db:"address" json:"address"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
