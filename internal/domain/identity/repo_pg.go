package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `email, name, role, organization_id, specialization, phone,
	password_hash, federated_sub, active, created_at, updated_at`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO app_user (
			email, name, role, organization_id, specialization, phone,
			password_hash, federated_sub, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.Email, user.Name, user.Role, user.OrganizationID, user.Specialization,
		user.Phone, user.PasswordHash, user.FederatedSub, user.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE email = $1`, email))
}

func (r *repoPG) GetByFederatedSub(ctx context.Context, sub string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM app_user WHERE federated_sub = $1`, sub))
}

func (r *repoPG) Update(ctx context.Context, user *User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE app_user SET
			name = $2, role = $3, organization_id = $4, specialization = $5,
			phone = $6, password_hash = $7, federated_sub = $8, active = $9,
			updated_at = NOW()
		WHERE email = $1`,
		user.Email, user.Name, user.Role, user.OrganizationID, user.Specialization,
		user.Phone, user.PasswordHash, user.FederatedSub, user.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM app_user WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM app_user`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM app_user ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context) (*RoleStats, error) {
	stats := &RoleStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE role = 'admin'),
			COUNT(*) FILTER (WHERE role = 'doctor'),
			COUNT(*) FILTER (WHERE role = 'patient')
		FROM app_user`,
	).Scan(&stats.Total, &stats.Admins, &stats.Doctors, &stats.Patients)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repoPG) scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.Email, &u.Name, &u.Role, &u.OrganizationID, &u.Specialization, &u.Phone,
		&u.PasswordHash, &u.FederatedSub, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repoPG) scanUserRow(rows pgx.Rows) (*User, error) {
	u := &User{}
	err := rows.Scan(
		&u.Email, &u.Name, &u.Role, &u.OrganizationID, &u.Specialization, &u.Phone,
		&u.PasswordHash, &u.FederatedSub, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}
