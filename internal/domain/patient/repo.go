package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for patient records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List optionally filters by organization; an empty orgID lists all.
	List(ctx context.Context, orgID string, limit, offset int) ([]*Patient, int, error)
}
