package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zamsuite/zamsuite-auth/internal/platform/db"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// TxRepository exposes the mutations available inside a transaction.
type TxRepository interface {
	CreatePermission(ctx context.Context, name, description, category string) (Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, description, category string) (Permission, error)
	DeletePermission(ctx context.Context, id int64) error
	DetachFromRoles(ctx context.Context, permissionID int64) error
	DetachFromUsers(ctx context.Context, permissionID int64) error
	RoleIDByName(ctx context.Context, name string) (int64, error)
	AttachToRole(ctx context.Context, permissionID, roleID int64) error
}

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a transactional view of the repository.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, category, created_at, updated_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetPermission fetches a permission by id.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, category, created_at, updated_at FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	return p, err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepository struct {
	q querier
}

func (t *txRepository) CreatePermission(ctx context.Context, name, description, category string) (Permission, error) {
	var p Permission
	err := t.q.QueryRow(ctx, `
		INSERT INTO permissions (name, description, category, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, name, description, category, created_at, updated_at`, name, description, category).
		Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *txRepository) UpdatePermission(ctx context.Context, id int64, name, description, category string) (Permission, error) {
	var p Permission
	err := t.q.QueryRow(ctx, `
		UPDATE permissions SET name = $2, description = $3, category = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, category, created_at, updated_at`, id, name, description, category).
		Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	return p, err
}

func (t *txRepository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DetachFromRoles(ctx context.Context, permissionID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM permission_role WHERE permission_id = $1`, permissionID)
	return err
}

func (t *txRepository) DetachFromUsers(ctx context.Context, permissionID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM permission_user WHERE permission_id = $1`, permissionID)
	return err
}

func (t *txRepository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return id, err
}

func (t *txRepository) AttachToRole(ctx context.Context, permissionID, roleID int64) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO permission_role (role_id, permission_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
