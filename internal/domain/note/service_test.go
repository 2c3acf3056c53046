package note

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dentaray/dentaray/internal/platform/auth"
)

type mockRepo struct {
	notes map[uuid.UUID]*Note
}

func newMockRepo() *mockRepo {
	return &mockRepo{notes: make(map[uuid.UUID]*Note)}
}

func (m *mockRepo) Create(_ context.Context, n *Note) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, n *Note) error {
	if _, ok := m.notes[n.ID]; !ok {
		return ErrNoteNotFound
	}
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.notes[id]; !ok {
		return ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*Note, error) {
	return m.collect(func(n *Note) bool { return n.PatientID == patientID }), nil
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorEmail string) ([]*Note, error) {
	return m.collect(func(n *Note) bool { return n.DoctorEmail == doctorEmail }), nil
}

func (m *mockRepo) collect(keep func(*Note) bool) []*Note {
	var result []*Note
	for _, n := range m.notes {
		if keep(n) {
			cp := *n
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

var (
	adminCaller  = &auth.Identity{Email: "admin@clinic.test", Role: auth.RoleAdmin}
	doctorCaller = &auth.Identity{Email: "doctor@clinic.test", Role: auth.RoleDoctor}
)

func TestService_Create(t *testing.T) {
	svc := NewService(newMockRepo())

	n, err := svc.Create(context.Background(), doctorCaller, CreateInput{
		PatientID: uuid.New(), Content: "mild gingivitis on lower right",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != TypeGeneral {
		t.Errorf("expected default type, got %s", n.Type)
	}
	if n.DoctorEmail != doctorCaller.Email {
		t.Errorf("expected author recorded, got %s", n.DoctorEmail)
	}
}

func TestService_Create_MissingFields(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []CreateInput{
		{Content: "no patient"},
		{PatientID: uuid.New()},
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), doctorCaller, in); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestService_Get_Access(t *testing.T) {
	svc := NewService(newMockRepo())

	n, err := svc.Create(context.Background(), doctorCaller, CreateInput{
		PatientID: uuid.New(), Content: "note",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Get(context.Background(), doctorCaller, n.ID); err != nil {
		t.Errorf("expected author access, got %v", err)
	}
	if _, err := svc.Get(context.Background(), adminCaller, n.ID); err != nil {
		t.Errorf("expected admin access, got %v", err)
	}

	other := &auth.Identity{Email: "other@clinic.test", Role: auth.RoleDoctor}
	if _, err := svc.Get(context.Background(), other, n.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for other doctor, got %v", err)
	}
}

func TestService_Update_AuthorOnly(t *testing.T) {
	svc := NewService(newMockRepo())

	n, err := svc.Create(context.Background(), doctorCaller, CreateInput{
		PatientID: uuid.New(), Content: "initial",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content := "revised"
	// Admins read everything but do not edit someone else's note.
	if _, err := svc.Update(context.Background(), adminCaller, n.ID, UpdateInput{Content: &content}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for admin edit, got %v", err)
	}

	updated, err := svc.Update(context.Background(), doctorCaller, n.ID, UpdateInput{Content: &content})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Content != "revised" {
		t.Errorf("expected content updated, got %s", updated.Content)
	}
	if updated.Type != TypeGeneral {
		t.Errorf("expected type untouched, got %s", updated.Type)
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(newMockRepo())

	n, err := svc.Create(context.Background(), doctorCaller, CreateInput{
		PatientID: uuid.New(), Content: "note",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := &auth.Identity{Email: "other@clinic.test", Role: auth.RoleDoctor}
	if err := svc.Delete(context.Background(), other, n.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for other doctor, got %v", err)
	}

	if err := svc.Delete(context.Background(), adminCaller, n.ID); err != nil {
		t.Fatalf("expected admin delete, got %v", err)
	}
	if _, err := svc.Get(context.Background(), adminCaller, n.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("expected ErrNoteNotFound after delete, got %v", err)
	}
}

func TestService_Lists(t *testing.T) {
	svc := NewService(newMockRepo())

	patientID := uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(context.Background(), doctorCaller, CreateInput{
			PatientID: patientID, Content: "note",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := svc.Create(context.Background(), doctorCaller, CreateInput{
		PatientID: uuid.New(), Content: "other patient",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byPatient, err := svc.ListForPatient(context.Background(), patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byPatient) != 2 {
		t.Errorf("expected 2 patient notes, got %d", len(byPatient))
	}

	byDoctor, err := svc.ListForDoctor(context.Background(), doctorCaller.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byDoctor) != 3 {
		t.Errorf("expected 3 doctor notes, got %d", len(byDoctor))
	}
}
