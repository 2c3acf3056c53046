package note

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for clinical notes. Lists return
// newest-first.
type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Note, error)
	ListForDoctor(ctx context.Context, doctorEmail string) ([]*Note, error)
}
