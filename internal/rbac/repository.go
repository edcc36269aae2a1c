package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository exposes the grant lookups the resolver needs.
type Repository interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	RolePermissionNames(ctx context.Context, userID int64) ([]string, error)
	DirectPermissionNames(ctx context.Context, userID int64) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UserExists reports whether a user row exists.
func (r *PGRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// RolePermissionNames returns permission names granted through the user's roles.
func (r *PGRepository) RolePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM role_user ru
		JOIN permission_role pr ON pr.role_id = ru.role_id
		JOIN permissions p ON p.id = pr.permission_id
		WHERE ru.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

// DirectPermissionNames returns permission names granted to the user outside
// of any role.
func (r *PGRepository) DirectPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM permission_user pu
		JOIN permissions p ON p.id = pu.permission_id
		WHERE pu.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows)
}

func scanNames(rows pgx.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

var _ Repository = (*PGRepository)(nil)
