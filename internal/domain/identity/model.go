package identity

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
)

// User maps to the app_user table. Email is the primary key; PasswordHash
// is nil for accounts that only sign in through a federated provider.
type User struct {
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	Role           string    `db:"role" json:"role"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash   *string   `db:"password_hash" json:"-"`
	FederatedSub   *string   `db:"federated_sub" json:"-"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RoleStats counts users per role.
type RoleStats struct {
	Total    int `json:"total"`
	Admins   int `json:"admins"`
	Doctors  int `json:"doctors"`
	Patients int `json:"patients"`
}
