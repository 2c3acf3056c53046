package organization

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for organizations.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	// GetByInviteCode matches active organizations only.
	GetByInviteCode(ctx context.Context, code string) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Organization, int, error)
}
