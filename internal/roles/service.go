package roles

import (
	"context"
	"strconv"
	"strings"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Invalidator bumps downstream caches after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service handles role business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
	inval Invalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, inval Invalidator) *Service {
	return &Service{repo: repo, audit: audit, inval: inval}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role with its permission ids.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole creates a role and attaches the requested permissions in one
// transaction.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	var created Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		role, err := tx.CreateRole(ctx, name, strings.TrimSpace(description))
		if err != nil {
			return err
		}
		for _, id := range permissionIDs {
			if err := tx.AttachPermission(ctx, role.ID, id); err != nil {
				return err
			}
		}
		role.PermissionIDs = permissionIDs
		created = role
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.create", created.ID)
	s.bump(ctx)
	return created, nil
}

// UpdateRole renames a role and replaces its permission set. The admin role
// is immutable: neither its name nor its grants can change.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if current.Name == shared.RoleAdmin {
		return Role{}, shared.NewInvariantError("admin_role_immutable", "the %s role cannot be modified", shared.RoleAdmin)
	}

	var updated Role
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		role, err := tx.UpdateRole(ctx, id, name, strings.TrimSpace(description))
		if err != nil {
			return err
		}
		if err := syncPermissions(ctx, tx, id, permissionIDs); err != nil {
			return err
		}
		role.PermissionIDs = permissionIDs
		updated = role
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.update", updated.ID)
	s.bump(ctx)
	return updated, nil
}

// DeleteRole removes a role, detaching its permissions and users first. The
// admin role cannot be deleted regardless of caller permissions.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if current.Name == shared.RoleAdmin {
		return shared.NewInvariantError("admin_role_immutable", "the %s role cannot be deleted", shared.RoleAdmin)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DetachAllPermissions(ctx, id); err != nil {
			return err
		}
		if err := tx.DetachAllUsers(ctx, id); err != nil {
			return err
		}
		return tx.DeleteRole(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.delete", id)
	s.bump(ctx)
	return nil
}

// Statistics reports per-role user counts with the percentage of all users,
// zero-floored when no users exist.
func (s *Service) Statistics(ctx context.Context) ([]Stat, error) {
	stats, total, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].Percentage = shared.Share(stats[i].UserCount, total)
	}
	return stats, nil
}

// syncPermissions diffs the current assignments against want and issues only
// the necessary attach/detach statements.
func syncPermissions(ctx context.Context, tx TxRepository, roleID int64, want []int64) error {
	current, err := tx.RolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(want))
	for _, id := range want {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := tx.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := tx.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, roleID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: formatID(roleID),
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.inval != nil {
		_ = s.inval.Bump(ctx)
	}
}
