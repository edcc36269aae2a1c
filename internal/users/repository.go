package users

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
	CreateUser(ctx context.Context, name, email, passwordHash, language string) (User, error)
	UpdateUser(ctx context.Context, id int64, name, email, language string) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
	UserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	AttachRole(ctx context.Context, userID, roleID int64) error
	DetachRole(ctx context.Context, userID, roleID int64) error
	DetachAllRoles(ctx context.Context, userID int64) error
	UserDirectPermissionIDs(ctx context.Context, userID int64) ([]int64, error)
	AttachPermission(ctx context.Context, userID, permissionID int64) error
	DetachPermission(ctx context.Context, userID, permissionID int64) error
	DetachAllPermissions(ctx context.Context, userID int64) error
	UserRoleNames(ctx context.Context, userID int64) ([]string, error)
	CountUsersWithRoleForUpdate(ctx context.Context, roleName string) (int64, error)
}

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UserRoleNames(ctx context.Context, userID int64) ([]string, error)
	CountUsersWithRole(ctx context.Context, roleName string) (int64, error)
	RoleIDByName(ctx context.Context, name string) (int64, error)
	SetLanguage(ctx context.Context, userID int64, language string) error
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

const userColumns = `id, name, email, password_hash, language, email_verified_at, created_at, updated_at`

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser fetches a user with role and direct permission ids.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	tx := &txRepository{q: r.pool}
	if user.RoleIDs, err = tx.UserRoleIDs(ctx, id); err != nil {
		return User{}, err
	}
	if user.DirectPermissionIDs, err = tx.UserDirectPermissionIDs(ctx, id); err != nil {
		return User{}, err
	}
	return user, nil
}

// UserRoleNames returns role names held by the user.
func (r *Repository) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name FROM role_user ru
		JOIN roles r ON r.id = ru.role_id
		WHERE ru.user_id = $1 ORDER BY ru.role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountUsersWithRole counts users holding the named role.
func (r *Repository) CountUsersWithRole(ctx context.Context, roleName string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM role_user ru
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = $1`, roleName).Scan(&count)
	return count, err
}

// RoleIDByName resolves a role name to its id.
func (r *Repository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return id, err
}

// SetLanguage stores the preferred language for a user.
func (r *Repository) SetLanguage(ctx context.Context, userID int64, language string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET language = $2, updated_at = NOW() WHERE id = $1`, userID, language)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Language,
		&user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepository struct {
	q querier
}

func (t *txRepository) CreateUser(ctx context.Context, name, email, passwordHash, language string) (User, error) {
	row := t.q.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+userColumns, name, email, passwordHash, language)
	return scanUser(row)
}

func (t *txRepository) UpdateUser(ctx context.Context, id int64, name, email, language string) (User, error) {
	row := t.q.QueryRow(ctx, `
		UPDATE users SET name = $2, email = $3, language = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, name, email, language)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

func (t *txRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := t.q.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) UserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return t.scanIDs(ctx, `SELECT role_id FROM role_user WHERE user_id = $1 ORDER BY role_id`, userID)
}

func (t *txRepository) AttachRole(ctx context.Context, userID, roleID int64) error {
	_, err := t.q.Exec(ctx, `INSERT INTO role_user (role_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, userID)
	return err
}

func (t *txRepository) DetachRole(ctx context.Context, userID, roleID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM role_user WHERE role_id = $1 AND user_id = $2`, roleID, userID)
	return err
}

func (t *txRepository) DetachAllRoles(ctx context.Context, userID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM role_user WHERE user_id = $1`, userID)
	return err
}

func (t *txRepository) UserDirectPermissionIDs(ctx context.Context, userID int64) ([]int64, error) {
	return t.scanIDs(ctx, `SELECT permission_id FROM permission_user WHERE user_id = $1 ORDER BY permission_id`, userID)
}

func (t *txRepository) AttachPermission(ctx context.Context, userID, permissionID int64) error {
	_, err := t.q.Exec(ctx, `INSERT INTO permission_user (permission_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, permissionID, userID)
	return err
}

func (t *txRepository) DetachPermission(ctx context.Context, userID, permissionID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM permission_user WHERE permission_id = $1 AND user_id = $2`, permissionID, userID)
	return err
}

func (t *txRepository) DetachAllPermissions(ctx context.Context, userID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM permission_user WHERE user_id = $1`, userID)
	return err
}

func (t *txRepository) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := t.q.Query(ctx, `
		SELECT r.name FROM role_user ru
		JOIN roles r ON r.id = ru.role_id
		WHERE ru.user_id = $1 ORDER BY ru.role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountUsersWithRoleForUpdate counts holders of the named role and locks
// their pivot rows until the transaction ends, so two concurrent deletes
// cannot both observe a surviving admin.
func (t *txRepository) CountUsersWithRoleForUpdate(ctx context.Context, roleName string) (int64, error) {
	var count int64
	err := t.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT ru.user_id FROM role_user ru
			JOIN roles r ON r.id = ru.role_id
			WHERE r.name = $1
			FOR UPDATE OF ru
		) locked`, roleName).Scan(&count)
	return count, err
}

func (t *txRepository) scanIDs(ctx context.Context, sql string, userID int64) ([]int64, error) {
	rows, err := t.q.Query(ctx, sql, userID)
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

var _ RepositoryPort = (*Repository)(nil)
