package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateInput carries a new patient record.
type CreateInput struct {
	Name           string  `json:"name"`
	BirthDate      string  `json:"birth_date"`
	Gender         string  `json:"gender"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	OrganizationID *string `json:"organization_id"`
}

// UpdateInput carries a partial patient update. Nil fields are left as is.
type UpdateInput struct {
	Name           *string `json:"name"`
	BirthDate      *string `json:"birth_date"`
	Gender         *string `json:"gender"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	OrganizationID *string `json:"organization_id"`
	Status         *string `json:"status"`
}

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	if in.Name == "" || in.BirthDate == "" || in.Gender == "" {
		return nil, fmt.Errorf("name, birth date and gender are required")
	}

	p := &Patient{
		Name:           in.Name,
		BirthDate:      in.BirthDate,
		Gender:         in.Gender,
		Phone:          in.Phone,
		Address:        in.Address,
		OrganizationID: in.OrganizationID,
		Status:         "active",
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.BirthDate != nil {
		p.BirthDate = *in.BirthDate
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.Phone != nil {
		p.Phone = *in.Phone
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.OrganizationID != nil {
		p.OrganizationID = in.OrganizationID
	}
	if in.Status != nil {
		p.Status = *in.Status
	}

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, orgID string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, orgID, limit, offset)
}
