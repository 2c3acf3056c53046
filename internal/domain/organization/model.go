package organization

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrgNotFound       = errors.New("organization not found")
	ErrAlreadyMember     = errors.New("user is already a member of this organization")
	ErrNotMember         = errors.New("user is not a member of this organization")
	ErrInvalidInviteCode = errors.New("invalid or expired invite code")
	ErrAccessDenied      = errors.New("no access to this organization")
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Member is one entry in an organization's member roster, stored as JSONB.
type Member struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Organization maps to the organization table. InviteCode is an 8 character
// uppercase alphanumeric code; only active organizations accept it.
type Organization struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Type       string    `db:"type" json:"type"`
	Address    string    `db:"address" json:"address"`
	Phone      string    `db:"phone" json:"phone"`
	InviteCode string    `db:"invite_code" json:"invite_code,omitempty"`
	Status     string    `db:"status" json:"status"`
	Members    []Member  `db:"members" json:"members"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// HasMember reports whether the roster contains the given email.
func (o *Organization) HasMember(email string) bool {
	for _, m := range o.Members {
		if m.Email == email {
			return true
		}
	}
	return false
}
