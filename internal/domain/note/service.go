package note

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dentaray/dentaray/internal/platform/auth"
)

// CreateInput carries a new clinical note.
type CreateInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
}

// UpdateInput carries a partial note update. Nil fields are left as is.
type UpdateInput struct {
	Content *string `json:"content"`
	Type    *string `json:"type"`
}

type Service struct {
	notes Repository
}

func NewService(notes Repository) *Service {
	return &Service{notes: notes}
}

// Create records a note authored by the calling doctor.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, in CreateInput) (*Note, error) {
	if in.PatientID == uuid.Nil || in.Content == "" {
		return nil, fmt.Errorf("patient id and content are required")
	}
	if in.Type == "" {
		in.Type = TypeGeneral
	}

	n := &Note{
		PatientID:   in.PatientID,
		DoctorEmail: caller.Email,
		Content:     in.Content,
		Type:        in.Type,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns a note. Doctors see only their own notes; admins see all.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(n.DoctorEmail) {
		return nil, ErrAccessDenied
	}
	return n, nil
}

// Update edits a note. Only the authoring doctor may change it.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id uuid.UUID, in UpdateInput) (*Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.DoctorEmail != caller.Email {
		return nil, ErrAccessDenied
	}

	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.Type != nil {
		n.Type = *in.Type
	}
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes a note. The authoring doctor or an admin may delete.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.Owns(n.DoctorEmail) {
		return ErrAccessDenied
	}
	return s.notes.Delete(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Note, error) {
	return s.notes.ListForPatient(ctx, patientID)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorEmail string) ([]*Note, error) {
	return s.notes.ListForDoctor(ctx, doctorEmail)
}
