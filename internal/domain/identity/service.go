package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dentaray/dentaray/internal/platform/auth"
)

// OrganizationJoiner resolves invite codes and records clinic membership.
// It is implemented by the organization service; a nil joiner disables
// invite-code registration.
type OrganizationJoiner interface {
	ValidateInviteCode(ctx context.Context, code string) (orgID string, err error)
	AddMember(ctx context.Context, orgID, email, name, role string) error
}

// RegisterInput carries a new account registration.
type RegisterInput struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	InviteCode     string  `json:"invite_code"`
	OrganizationID *string `json:"organization_id"`
	Specialization *string `json:"specialization"`
	Phone          *string `json:"phone"`
}

// UpdateInput carries a partial profile update. Nil fields are left as is.
type UpdateInput struct {
	Name           *string `json:"name"`
	Role           *string `json:"role"`
	OrganizationID *string `json:"organization_id"`
	Specialization *string `json:"specialization"`
	Phone          *string `json:"phone"`
}

type Service struct {
	users Repository
	orgs  OrganizationJoiner
	log   zerolog.Logger
}

func NewService(users Repository, orgs OrganizationJoiner) *Service {
	return &Service{users: users, orgs: orgs, log: zerolog.Nop()}
}

// SetOrganizationJoiner wires the organization service in after both
// services exist; each depends on the other through a small interface.
func (s *Service) SetOrganizationJoiner(orgs OrganizationJoiner) {
	s.orgs = orgs
}

// SetLogger replaces the no-op default.
func (s *Service) SetLogger(log zerolog.Logger) {
	s.log = log
}

// registrableRoles are the roles a caller may pick at self-registration.
// Admin accounts are only created by another admin.
var registrableRoles = map[string]bool{
	auth.RolePatient: true,
	auth.RoleDoctor:  true,
}

var validRoles = map[string]bool{
	auth.RolePatient: true,
	auth.RoleDoctor:  true,
	auth.RoleAdmin:   true,
}

// Register creates a new local account. An invite code, when present, is
// validated first and enrolls the account into the clinic it belongs to.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, fmt.Errorf("email, password and name are required")
	}
	if in.Role == "" {
		in.Role = auth.RolePatient
	}
	if !registrableRoles[in.Role] {
		return nil, ErrInvalidRole
	}

	orgID := in.OrganizationID
	if in.InviteCode != "" {
		if s.orgs == nil {
			return nil, fmt.Errorf("invite codes are not supported")
		}
		resolved, err := s.orgs.ValidateInviteCode(ctx, in.InviteCode)
		if err != nil {
			return nil, fmt.Errorf("invalid invite code")
		}
		orgID = &resolved
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	hashStr := string(hash)

	user := &User{
		Email:          in.Email,
		Name:           in.Name,
		Role:           in.Role,
		OrganizationID: orgID,
		Specialization: in.Specialization,
		Phone:          in.Phone,
		PasswordHash:   &hashStr,
		Active:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Membership is best effort; the account exists either way, but a
	// dropped roster insert must at least be visible to operators.
	if orgID != nil && s.orgs != nil {
		if err := s.orgs.AddMember(ctx, *orgID, user.Email, user.Name, user.Role); err != nil {
			s.log.Warn().Err(err).
				Str("email", user.Email).
				Str("organization_id", *orgID).
				Msg("registered user could not be added to clinic roster")
		}
	}

	return user, nil
}

// Authenticate verifies a local login. Every failure path returns the same
// ErrInvalidCredentials so callers cannot probe which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active || user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

// Update applies a partial profile update. Role changes go through role
// validation; everything else is copied as given.
func (s *Service) Update(ctx context.Context, email string, in UpdateInput) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		if !validRoles[*in.Role] {
			return nil, ErrInvalidRole
		}
		user.Role = *in.Role
	}
	if in.OrganizationID != nil {
		user.OrganizationID = in.OrganizationID
	}
	if in.Specialization != nil {
		user.Specialization = in.Specialization
	}
	if in.Phone != nil {
		user.Phone = in.Phone
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetOrganization records or clears (nil) the clinic a user belongs to.
func (s *Service) SetOrganization(ctx context.Context, email string, orgID *string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	user.OrganizationID = orgID
	return s.users.Update(ctx, user)
}

func (s *Service) Delete(ctx context.Context, email string) error {
	return s.users.Delete(ctx, email)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) Stats(ctx context.Context) (*RoleStats, error) {
	return s.users.Stats(ctx)
}

// ToggleStatus flips the active flag and returns the updated user.
func (s *Service) ToggleStatus(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	user.Active = !user.Active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Identity converts a user record to the auth layer's identity view.
func (u *User) Identity() *auth.Identity {
	id := &auth.Identity{
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
	if u.OrganizationID != nil {
		id.OrganizationID = *u.OrganizationID
	}
	if u.FederatedSub != nil {
		id.FederatedSub = *u.FederatedSub
	}
	return id
}

// Directory adapts the user repository to the auth middleware's lookup
// interface. Absent users map to (nil, nil) so the middleware can fall back
// to a synthesized identity.
type Directory struct {
	users Repository
}

func NewDirectory(users Repository) *Directory {
	return &Directory{users: users}
}

func (d *Directory) FindByFederatedSub(ctx context.Context, sub string) (*auth.Identity, error) {
	user, err := d.users.GetByFederatedSub(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.Identity(), nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	user, err := d.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.Identity(), nil
}
