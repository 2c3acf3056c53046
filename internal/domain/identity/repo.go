package identity

import "context"

// Repository defines the persistence interface for users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByFederatedSub(ctx context.Context, sub string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, email string) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Stats(ctx context.Context) (*RoleStats, error)
}
