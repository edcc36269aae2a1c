package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserTimestamps is the minimal row used for activity bucketing.
type UserTimestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleCount pairs a role name with how many users hold it.
type RoleCount struct {
	Name  string
	Count int64
}

// RolePermissionRow is one role-to-permission association with the stored
// permission category.
type RolePermissionRow struct {
	RoleName   string
	Permission string
	Category   string
}

// RoleMemberRow is one of the most recent members of a role.
type RoleMemberRow struct {
	RoleName string
	UserName string
}

// MemberActivity is a role member with the timestamp used for the
// Active/Inactive tag.
type MemberActivity struct {
	Name      string
	Email     string
	UpdatedAt time.Time
}

// PermissionRow is a permission name plus its category.
type PermissionRow struct {
	Name     string
	Category string
}

// Repository defines the read queries behind the dashboard aggregator.
type Repository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountUsersUpdatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	ListUserTimestamps(ctx context.Context, since time.Time) ([]UserTimestamps, error)
	RoleCounts(ctx context.Context) ([]RoleCount, error)
	RecentUsers(ctx context.Context, limit int) ([]RecentUser, error)
	RolePermissionRows(ctx context.Context) ([]RolePermissionRow, error)
	RecentRoleMembers(ctx context.Context, perRole int) ([]RoleMemberRow, error)
	RoleMembers(ctx context.Context, roleName string, limit int) ([]MemberActivity, error)
	CountUsersWithRole(ctx context.Context, roleName string) (int64, error)
	CountUsersWithRoleCreatedBetween(ctx context.Context, roleName string, from, to time.Time) (int64, error)
	FirstPermissions(ctx context.Context, limit int) ([]PermissionRow, error)
}

// PGRepository provides PostgreSQL backed reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PGRepository) CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2`, from, to).Scan(&n)
	return n, err
}

func (r *PGRepository) CountUsersUpdatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE updated_at >= $1 AND updated_at < $2`, from, to).Scan(&n)
	return n, err
}

func (r *PGRepository) ListUserTimestamps(ctx context.Context, since time.Time) ([]UserTimestamps, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT created_at, updated_at FROM users WHERE created_at >= $1 OR updated_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserTimestamps
	for rows.Next() {
		var ts UserTimestamps
		if err := rows.Scan(&ts.CreatedAt, &ts.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (r *PGRepository) RoleCounts(ctx context.Context) ([]RoleCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name, COUNT(ru.user_id)
		FROM roles r
		LEFT JOIN role_user ru ON ru.role_id = r.id
		GROUP BY r.id, r.name
		ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoleCount
	for rows.Next() {
		var rc RoleCount
		if err := rows.Scan(&rc.Name, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *PGRepository) RecentUsers(ctx context.Context, limit int) ([]RecentUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.name, u.email, u.created_at,
			COALESCE((
				SELECT r.name FROM roles r
				JOIN role_user ru ON ru.role_id = r.id
				WHERE ru.user_id = u.id
				ORDER BY r.id
				LIMIT 1
			), '')
		FROM users u
		ORDER BY u.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecentUser
	for rows.Next() {
		var ru RecentUser
		if err := rows.Scan(&ru.Name, &ru.Email, &ru.JoinedAt, &ru.Role); err != nil {
			return nil, err
		}
		out = append(out, ru)
	}
	return out, rows.Err()
}

func (r *PGRepository) RolePermissionRows(ctx context.Context) ([]RolePermissionRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name, p.name, p.category
		FROM roles r
		JOIN permission_role pr ON pr.role_id = r.id
		JOIN permissions p ON p.id = pr.permission_id
		ORDER BY r.name, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RolePermissionRow
	for rows.Next() {
		var rp RolePermissionRow
		if err := rows.Scan(&rp.RoleName, &rp.Permission, &rp.Category); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

func (r *PGRepository) RecentRoleMembers(ctx context.Context, perRole int) ([]RoleMemberRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role_name, user_name FROM (
			SELECT r.name AS role_name, u.name AS user_name,
				ROW_NUMBER() OVER (PARTITION BY r.id ORDER BY u.created_at DESC) AS rn
			FROM roles r
			JOIN role_user ru ON ru.role_id = r.id
			JOIN users u ON u.id = ru.user_id
		) ranked
		WHERE rn <= $1
		ORDER BY role_name, rn`, perRole)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoleMemberRow
	for rows.Next() {
		var rm RoleMemberRow
		if err := rows.Scan(&rm.RoleName, &rm.UserName); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *PGRepository) RoleMembers(ctx context.Context, roleName string, limit int) ([]MemberActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.name, u.email, u.updated_at
		FROM users u
		JOIN role_user ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = $1
		ORDER BY u.created_at DESC
		LIMIT $2`, roleName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemberActivity
	for rows.Next() {
		var m MemberActivity
		if err := rows.Scan(&m.Name, &m.Email, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepository) CountUsersWithRole(ctx context.Context, roleName string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM users u
		JOIN role_user ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = $1`, roleName).Scan(&n)
	return n, err
}

func (r *PGRepository) CountUsersWithRoleCreatedBetween(ctx context.Context, roleName string, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM users u
		JOIN role_user ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = $1 AND u.created_at >= $2 AND u.created_at < $3`, roleName, from, to).Scan(&n)
	return n, err
}

func (r *PGRepository) FirstPermissions(ctx context.Context, limit int) ([]PermissionRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, category FROM permissions ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PermissionRow
	for rows.Next() {
		var p PermissionRow
		if err := rows.Scan(&p.Name, &p.Category); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
