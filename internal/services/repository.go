package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// RepositoryPort defines data access methods for service credentials.
type RepositoryPort interface {
	ListServices(ctx context.Context) ([]Service, error)
	GetService(ctx context.Context, id int64) (Service, error)
	CreateService(ctx context.Context, svc Service) (Service, error)
	UpdateService(ctx context.Context, id int64, name string, permissions []string, isActive bool) (Service, error)
	UpdateSecret(ctx context.Context, id int64, secret string) (Service, error)
	DeleteService(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const serviceColumns = `id, name, service_id, service_secret, permissions, is_active, created_at, updated_at`

// ListServices returns all registered services ordered by id.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// GetService fetches a service credential by id.
func (r *Repository) GetService(ctx context.Context, id int64) (Service, error) {
	svc, err := scanService(r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Service{}, shared.ErrNotFound
	}
	return svc, err
}

// CreateService inserts a new credential row.
func (r *Repository) CreateService(ctx context.Context, svc Service) (Service, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO services (name, service_id, service_secret, permissions, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+serviceColumns,
		svc.Name, svc.ServiceID, svc.ServiceSecret, svc.Permissions, svc.IsActive)
	return scanService(row)
}

// UpdateService edits name, permissions and the active flag.
func (r *Repository) UpdateService(ctx context.Context, id int64, name string, permissions []string, isActive bool) (Service, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE services SET name = $2, permissions = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+serviceColumns, id, name, permissions, isActive)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Service{}, shared.ErrNotFound
	}
	return svc, err
}

// UpdateSecret overwrites the stored secret.
func (r *Repository) UpdateSecret(ctx context.Context, id int64, secret string) (Service, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE services SET service_secret = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+serviceColumns, id, secret)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Service{}, shared.ErrNotFound
	}
	return svc, err
}

// DeleteService removes a credential row.
func (r *Repository) DeleteService(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanService(row pgx.Row) (Service, error) {
	var svc Service
	err := row.Scan(&svc.ID, &svc.Name, &svc.ServiceID, &svc.ServiceSecret, &svc.Permissions,
		&svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt)
	return svc, err
}

var _ RepositoryPort = (*Repository)(nil)
