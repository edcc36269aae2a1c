package roles

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
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachAllPermissions(ctx context.Context, roleID int64) error
	DetachAllUsers(ctx context.Context, roleID int64) error
}

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	Statistics(ctx context.Context) ([]Stat, int64, error)
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

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role together with its permission ids.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	perms := &txRepository{q: r.pool}
	role.PermissionIDs, err = perms.RolePermissionIDs(ctx, id)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// Statistics returns per-role user counts plus the total user count.
func (r *Repository) Statistics(ctx context.Context) ([]Stat, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, COUNT(ru.user_id)
		FROM roles r
		LEFT JOIN role_user ru ON ru.role_id = r.id
		GROUP BY r.id, r.name
		ORDER BY r.id`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var stats []Stat
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.ID, &s.Name, &s.UserCount); err != nil {
			return nil, 0, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return stats, total, nil
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepository struct {
	q querier
}

func (t *txRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := t.q.QueryRow(ctx, `
		INSERT INTO roles (name, description, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, name, description, created_at, updated_at`, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func (t *txRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := t.q.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at`, id, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

func (t *txRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := t.q.Query(ctx, `SELECT permission_id FROM permission_role WHERE role_id = $1 ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *txRepository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO permission_role (role_id, permission_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	return err
}

func (t *txRepository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM permission_role WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	return err
}

func (t *txRepository) DetachAllPermissions(ctx context.Context, roleID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM permission_role WHERE role_id = $1`, roleID)
	return err
}

func (t *txRepository) DetachAllUsers(ctx context.Context, roleID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM role_user WHERE role_id = $1`, roleID)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
