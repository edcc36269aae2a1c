package permissions

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Invalidator bumps downstream caches after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service handles permission business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
	inval Invalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, inval Invalidator) *Service {
	return &Service{repo: repo, audit: audit, inval: inval}
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// GetPermission fetches a permission by id.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// CreatePermission inserts a permission and, in the same transaction,
// attaches it to the admin role so that role keeps holding every permission.
func (s *Service) CreatePermission(ctx context.Context, actorID int64, name, description, category string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory(name)
	}

	var created Permission
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		perm, err := tx.CreatePermission(ctx, name, strings.TrimSpace(description), category)
		if err != nil {
			return err
		}
		adminID, err := tx.RoleIDByName(ctx, shared.RoleAdmin)
		if err != nil {
			// A deployment without a seeded admin role still gets the permission.
			if errors.Is(err, shared.ErrNotFound) {
				created = perm
				return nil
			}
			return err
		}
		if err := tx.AttachToRole(ctx, perm.ID, adminID); err != nil {
			return err
		}
		created = perm
		return nil
	})
	if err != nil {
		return Permission{}, err
	}
	s.recordAudit(ctx, actorID, "permission.create", created.ID)
	s.bump(ctx)
	return created, nil
}

// UpdatePermission edits a permission. Core permission names are referenced
// by the authorization middleware, so renaming one is rejected; description
// and category stay editable.
func (s *Service) UpdatePermission(ctx context.Context, actorID, id int64, name, description, category string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	current, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if shared.IsCorePermission(current.Name) && name != current.Name {
		return Permission{}, shared.NewInvariantError("core_permission_protected", "core permission %s cannot be renamed", current.Name)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = current.Category
	}

	var updated Permission
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		perm, err := tx.UpdatePermission(ctx, id, name, strings.TrimSpace(description), category)
		if err != nil {
			return err
		}
		updated = perm
		return nil
	})
	if err != nil {
		return Permission{}, err
	}
	s.recordAudit(ctx, actorID, "permission.update", id)
	s.bump(ctx)
	return updated, nil
}

// DeletePermission removes a permission after detaching it everywhere. Core
// permissions cannot be deleted, regardless of the caller's own grants.
func (s *Service) DeletePermission(ctx context.Context, actorID, id int64) error {
	current, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return err
	}
	if shared.IsCorePermission(current.Name) {
		return shared.NewInvariantError("core_permission_protected", "core permission %s cannot be deleted", current.Name)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DetachFromRoles(ctx, id); err != nil {
			return err
		}
		if err := tx.DetachFromUsers(ctx, id); err != nil {
			return err
		}
		return tx.DeletePermission(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "permission.delete", id)
	s.bump(ctx)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, permID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "permission",
		EntityID: strconv.FormatInt(permID, 10),
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.inval != nil {
		_ = s.inval.Bump(ctx)
	}
}
