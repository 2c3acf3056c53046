package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const analysisColumns = `id, user_email, timestamp, filename, image_url,
	organization_id, doctor_email, patient_note, status, findings,
	total_findings, image_dimensions, analyzed_at, analyzed_by, created_at`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, a *Analysis) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis (id, user_email, timestamp, filename, image_url,
			organization_id, doctor_email, patient_note, status, findings,
			total_findings, image_dimensions, analyzed_at, analyzed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.UserEmail, a.Timestamp, a.FileName, a.ImageURL,
		a.OrganizationID, a.DoctorEmail, a.PatientNote, a.Status, a.Findings,
		a.TotalFindings, a.ImageDimensions, a.AnalyzedAt, a.AnalyzedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Analysis, error) {
	return scanAnalysisRow(r.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analysis WHERE id = $1`, id))
}

func (r *repoPG) MarkAnalyzed(ctx context.Context, id string, res Results, analyzedBy string, analyzedAt time.Time) (*Analysis, error) {
	a, err := scanAnalysisRow(r.pool.QueryRow(ctx, `
		UPDATE analysis SET
			status = $2, findings = $3, total_findings = $4,
			image_dimensions = $5, analyzed_at = $6, analyzed_by = $7
		WHERE id = $1 AND status = $8
		RETURNING `+analysisColumns,
		id, StatusAnalyzed, res.Findings, res.TotalFindings,
		res.ImageDimensions, analyzedAt, analyzedBy, StatusPending,
	))
	if errors.Is(err, ErrAnalysisNotFound) {
		// Distinguish a missing record from one already analyzed.
		var status string
		probe := r.pool.QueryRow(ctx, `SELECT status FROM analysis WHERE id = $1`, id)
		if probeErr := probe.Scan(&status); probeErr != nil {
			if errors.Is(probeErr, pgx.ErrNoRows) {
				return nil, ErrAnalysisNotFound
			}
			return nil, probeErr
		}
		return nil, ErrAnalysisConflict
	}
	return a, err
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM analysis WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (r *repoPG) ListForUser(ctx context.Context, email string) ([]*Analysis, error) {
	return r.list(ctx, `SELECT `+analysisColumns+` FROM analysis
		WHERE user_email = $1 ORDER BY created_at DESC`, email)
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Analysis, error) {
	return r.list(ctx, `SELECT `+analysisColumns+` FROM analysis ORDER BY created_at DESC`)
}

func (r *repoPG) ListPending(ctx context.Context) ([]*Analysis, error) {
	return r.list(ctx, `SELECT `+analysisColumns+` FROM analysis
		WHERE status = $1 ORDER BY created_at DESC`, StatusPending)
}

func (r *repoPG) ListPendingForDoctor(ctx context.Context, doctorEmail string) ([]*Analysis, error) {
	return r.list(ctx, `SELECT `+analysisColumns+` FROM analysis
		WHERE status = $1 AND doctor_email = $2 ORDER BY created_at DESC`,
		StatusPending, doctorEmail)
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Analysis, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func scanAnalysis(rows pgx.Rows) (*Analysis, error) {
	a := &Analysis{}
	err := rows.Scan(
		&a.ID, &a.UserEmail, &a.Timestamp, &a.FileName, &a.ImageURL,
		&a.OrganizationID, &a.DoctorEmail, &a.PatientNote, &a.Status, &a.Findings,
		&a.TotalFindings, &a.ImageDimensions, &a.AnalyzedAt, &a.AnalyzedBy, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanAnalysisRow(row pgx.Row) (*Analysis, error) {
	a := &Analysis{}
	err := row.Scan(
		&a.ID, &a.UserEmail, &a.Timestamp, &a.FileName, &a.ImageURL,
		&a.OrganizationID, &a.DoctorEmail, &a.PatientNote, &a.Status, &a.Findings,
		&a.TotalFindings, &a.ImageDimensions, &a.AnalyzedAt, &a.AnalyzedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return a, nil
}
