package organization

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/dentaray/dentaray/internal/platform/auth"
)

// UserOrganizations records which clinic a user currently belongs to. It is
// implemented by the identity service; nil disables the join/leave flows'
// profile sync.
type UserOrganizations interface {
	SetOrganization(ctx context.Context, email string, orgID *string) error
}

// CreateInput carries a new clinic registration.
type CreateInput struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// UpdateInput carries a partial clinic update. Nil fields are left as is.
type UpdateInput struct {
	Name    *string `json:"name"`
	Type    *string `json:"type"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Status  *string `json:"status"`
}

type Service struct {
	orgs  Repository
	users UserOrganizations
}

func NewService(orgs Repository, users UserOrganizations) *Service {
	return &Service{orgs: orgs, users: users}
}

const inviteCodeLength = 8
const inviteCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateInviteCode produces an 8 character uppercase alphanumeric code.
func generateInviteCode() (string, error) {
	code := make([]byte, inviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("generating invite code: %w", err)
		}
		code[i] = inviteCodeCharset[n.Int64()]
	}
	return string(code), nil
}

// uniqueInviteCode retries until the generated code does not collide with
// an active organization's code.
func (s *Service) uniqueInviteCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}
		_, err = s.orgs.GetByInviteCode(ctx, code)
		if errors.Is(err, ErrOrgNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique invite code")
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Organization, error) {
	if in.Name == "" || in.Type == "" {
		return nil, fmt.Errorf("name and type are required")
	}

	code, err := s.uniqueInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	org := &Organization{
		Name:       in.Name,
		Type:       in.Type,
		Address:    in.Address,
		Phone:      in.Phone,
		InviteCode: code,
		Status:     StatusActive,
		Members:    []Member{},
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.orgs.List(ctx, limit, offset)
}

// Update applies a partial update. Doctors may only update the clinic they
// belong to; admins update any.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id uuid.UUID, in UpdateInput) (*Organization, error) {
	if !caller.IsAdmin() && caller.OrganizationID != id.String() {
		return nil, ErrAccessDenied
	}

	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		org.Name = *in.Name
	}
	if in.Type != nil {
		org.Type = *in.Type
	}
	if in.Address != nil {
		org.Address = *in.Address
	}
	if in.Phone != nil {
		org.Phone = *in.Phone
	}
	if in.Status != nil {
		if *in.Status != StatusActive && *in.Status != StatusInactive {
			return nil, fmt.Errorf("invalid status %q", *in.Status)
		}
		org.Status = *in.Status
	}

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orgs.Delete(ctx, id)
}

// InviteCode returns the clinic's code. Non-admin callers must belong to
// the clinic.
func (s *Service) InviteCode(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*Organization, error) {
	if !caller.IsAdmin() && caller.OrganizationID != id.String() {
		return nil, ErrAccessDenied
	}
	return s.orgs.GetByID(ctx, id)
}

// RegenerateInviteCode replaces the clinic's code with a fresh unique one,
// invalidating the old code immediately.
func (s *Service) RegenerateInviteCode(ctx context.Context, id uuid.UUID) (*Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	code, err := s.uniqueInviteCode(ctx)
	if err != nil {
		return nil, err
	}
	org.InviteCode = code

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Members returns the roster. Admins and patients may view any clinic
// (patients pick a doctor from it); everyone else only their own.
func (s *Service) Members(ctx context.Context, caller *auth.Identity, id uuid.UUID) ([]Member, error) {
	if caller.Role != auth.RoleAdmin && caller.Role != auth.RolePatient &&
		caller.OrganizationID != id.String() {
		return nil, ErrAccessDenied
	}

	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org.Members == nil {
		return []Member{}, nil
	}
	return org.Members, nil
}

// ValidateInviteCode resolves a code to the active clinic it belongs to.
func (s *Service) ValidateInviteCode(ctx context.Context, code string) (string, error) {
	org, err := s.orgs.GetByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return "", ErrInvalidInviteCode
		}
		return "", err
	}
	return org.ID.String(), nil
}

// AddMember appends a user to the roster. Adding an existing member is a
// detectable conflict, not a silent no-op.
func (s *Service) AddMember(ctx context.Context, orgID, email, name, role string) error {
	id, err := uuid.Parse(orgID)
	if err != nil {
		return ErrOrgNotFound
	}

	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if org.HasMember(email) {
		return ErrAlreadyMember
	}

	org.Members = append(org.Members, Member{
		Email:    email,
		Name:     name,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	return s.orgs.Update(ctx, org)
}

// RemoveMember drops a user from the roster.
func (s *Service) RemoveMember(ctx context.Context, orgID uuid.UUID, email string) error {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if !org.HasMember(email) {
		return ErrNotMember
	}

	kept := org.Members[:0]
	for _, m := range org.Members {
		if m.Email != email {
			kept = append(kept, m)
		}
	}
	org.Members = kept
	return s.orgs.Update(ctx, org)
}

// Join enrolls the caller into the clinic behind the invite code and
// records the membership on their profile.
func (s *Service) Join(ctx context.Context, caller *auth.Identity, inviteCode string) (*Organization, error) {
	org, err := s.orgs.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, err
	}

	role := caller.Role
	if role == "" {
		role = auth.RoleDoctor
	}
	if err := s.AddMember(ctx, org.ID.String(), caller.Email, caller.Name, role); err != nil {
		return nil, err
	}

	if s.users != nil {
		orgID := org.ID.String()
		if err := s.users.SetOrganization(ctx, caller.Email, &orgID); err != nil {
			return nil, err
		}
	}
	return org, nil
}

// Leave removes the caller from a clinic they belong to and clears the
// membership from their profile.
func (s *Service) Leave(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	if caller.OrganizationID != id.String() {
		return ErrNotMember
	}

	if err := s.RemoveMember(ctx, id, caller.Email); err != nil && !errors.Is(err, ErrNotMember) {
		return err
	}

	if s.users != nil {
		if err := s.users.SetOrganization(ctx, caller.Email, nil); err != nil {
			return err
		}
	}
	return nil
}
