package note

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const noteColumns = `id, patient_id, doctor_email, content, type, created_at, updated_at`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO note (id, patient_id, doctor_email, content, type)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.PatientID, n.DoctorEmail, n.Content, n.Type,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	return scanNoteRow(r.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM note WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *Note) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE note SET content = $2, type = $3, updated_at = NOW()
		WHERE id = $1`,
		n.ID, n.Content, n.Type,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM note WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Note, error) {
	return r.list(ctx, `SELECT `+noteColumns+` FROM note
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorEmail string) ([]*Note, error) {
	return r.list(ctx, `SELECT `+noteColumns+` FROM note
		WHERE doctor_email = $1 ORDER BY created_at DESC`, doctorEmail)
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Note, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		n := &Note{}
		if err := rows.Scan(&n.ID, &n.PatientID, &n.DoctorEmail, &n.Content, &n.Type, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanNoteRow(row pgx.Row) (*Note, error) {
	n := &Note{}
	err := row.Scan(&n.ID, &n.PatientID, &n.DoctorEmail, &n.Content, &n.Type, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return n, nil
}
