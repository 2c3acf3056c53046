package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orgColumns = `id, name, type, address, phone, invite_code, status, members,
	created_at, updated_at`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, org *Organization) error {
	org.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organization (id, name, type, address, phone, invite_code, status, members)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		org.ID, org.Name, org.Type, org.Address, org.Phone,
		org.InviteCode, org.Status, org.Members,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.scanOrg(r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organization WHERE id = $1`, id))
}

func (r *repoPG) GetByInviteCode(ctx context.Context, code string) (*Organization, error) {
	return r.scanOrg(r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organization WHERE invite_code = $1 AND status = 'active'`,
		code))
}

func (r *repoPG) Update(ctx context.Context, org *Organization) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE organization SET
			name = $2, type = $3, address = $4, phone = $5,
			invite_code = $6, status = $7, members = $8, updated_at = NOW()
		WHERE id = $1`,
		org.ID, org.Name, org.Type, org.Address, org.Phone,
		org.InviteCode, org.Status, org.Members,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organization WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM organization`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organization ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Type, &org.Address, &org.Phone,
			&org.InviteCode, &org.Status, &org.Members, &org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, org)
	}
	return orgs, total, rows.Err()
}

func (r *repoPG) scanOrg(row pgx.Row) (*Organization, error) {
	org := &Organization{}
	err := row.Scan(
		&org.ID, &org.Name, &org.Type, &org.Address, &org.Phone,
		&org.InviteCode, &org.Status, &org.Members, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return org, nil
}
