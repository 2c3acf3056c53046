package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, orgID string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if orgID != "" && (p.OrganizationID == nil || *p.OrganizationID != orgID) {
			continue
		}
		result = append(result, p)
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func TestService_Create(t *testing.T) {
	svc := NewService(newMockRepo())

	p, err := svc.Create(context.Background(), CreateInput{
		Name: "Jane Doe", BirthDate: "1990-04-12", Gender: "female",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id assigned")
	}
	if p.Status != "active" {
		t.Errorf("expected active status, got %s", p.Status)
	}
}

func TestService_Create_MissingFields(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []CreateInput{
		{BirthDate: "1990-04-12", Gender: "female"},
		{Name: "Jane", Gender: "female"},
		{Name: "Jane", BirthDate: "1990-04-12"},
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), in); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestService_Update_Partial(t *testing.T) {
	svc := NewService(newMockRepo())

	p, err := svc.Create(context.Background(), CreateInput{
		Name: "Jane Doe", BirthDate: "1990-04-12", Gender: "female", Phone: "555-0100",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newPhone := "555-0199"
	updated, err := svc.Update(context.Background(), p.ID, UpdateInput{Phone: &newPhone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Phone != "555-0199" {
		t.Errorf("expected phone updated, got %s", updated.Phone)
	}
	if updated.Name != "Jane Doe" {
		t.Errorf("expected name untouched, got %s", updated.Name)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	name := "X"
	if _, err := svc.Update(context.Background(), uuid.New(), UpdateInput{Name: &name}); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_List_ByOrganization(t *testing.T) {
	svc := NewService(newMockRepo())

	orgA := "org-a"
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), CreateInput{
			Name: "P", BirthDate: "2000-01-01", Gender: "male", OrganizationID: &orgA,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := svc.Create(context.Background(), CreateInput{
		Name: "Q", BirthDate: "2000-01-01", Gender: "female",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, total, err := svc.List(context.Background(), "org-a", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 org patients, got %d", total)
	}

	_, total, err = svc.List(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 {
		t.Errorf("expected 4 total patients, got %d", total)
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(newMockRepo())

	p, err := svc.Create(context.Background(), CreateInput{
		Name: "Jane", BirthDate: "1990-04-12", Gender: "female",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound after delete, got %v", err)
	}
}
