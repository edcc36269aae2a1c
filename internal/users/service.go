package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Invalidator bumps downstream caches after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Mailer enqueues outbound mail without blocking the request.
type Mailer interface {
	EnqueueWelcome(ctx context.Context, email, name string) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	inval  Invalidator
	mailer Mailer
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, inval Invalidator, mailer Mailer) *Service {
	return &Service{repo: repo, audit: audit, inval: inval, mailer: mailer}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user with role and permission ids.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Name          string
	Email         string
	Password      string
	Language      string
	RoleIDs       []int64
	PermissionIDs []int64
}

// CreateUser stores a new account with its role and direct permission grants
// in one transaction, then queues a welcome mail.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	if in.Language == "" {
		in.Language = "en"
	}

	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		user, err := tx.CreateUser(ctx, strings.TrimSpace(in.Name), strings.ToLower(strings.TrimSpace(in.Email)), string(hash), in.Language)
		if err != nil {
			return err
		}
		for _, roleID := range in.RoleIDs {
			if err := tx.AttachRole(ctx, user.ID, roleID); err != nil {
				return err
			}
		}
		for _, permID := range in.PermissionIDs {
			if err := tx.AttachPermission(ctx, user.ID, permID); err != nil {
				return err
			}
		}
		user.RoleIDs = in.RoleIDs
		user.DirectPermissionIDs = in.PermissionIDs
		created = user
		return nil
	})
	if err != nil {
		return User{}, err
	}
	if s.mailer != nil {
		_ = s.mailer.EnqueueWelcome(ctx, created.Email, created.Name)
	}
	s.recordAudit(ctx, actorID, "user.create", created.ID)
	s.bump(ctx)
	return created, nil
}

// UpdateInput carries the editable fields of an account. Password is
// rehashed only when non-empty.
type UpdateInput struct {
	Name          string
	Email         string
	Password      string
	Language      string
	RoleIDs       []int64
	PermissionIDs []int64
}

// UpdateUser edits an account and replaces its role and direct permission
// sets. Detaching the admin role from the last remaining admin is rejected.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, in UpdateInput) (User, error) {
	if err := s.guardAdminDetach(ctx, id, in.RoleIDs); err != nil {
		return User{}, err
	}

	var hash string
	if in.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hash = string(hashed)
	}
	if in.Language == "" {
		in.Language = "en"
	}

	var updated User
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		user, err := tx.UpdateUser(ctx, id, strings.TrimSpace(in.Name), strings.ToLower(strings.TrimSpace(in.Email)), in.Language)
		if err != nil {
			return err
		}
		if hash != "" {
			if err := tx.UpdatePassword(ctx, id, hash); err != nil {
				return err
			}
		}
		if err := syncIDs(ctx, id, in.RoleIDs, tx.UserRoleIDs, tx.AttachRole, tx.DetachRole); err != nil {
			return err
		}
		if err := syncIDs(ctx, id, in.PermissionIDs, tx.UserDirectPermissionIDs, tx.AttachPermission, tx.DetachPermission); err != nil {
			return err
		}
		user.RoleIDs = in.RoleIDs
		user.DirectPermissionIDs = in.PermissionIDs
		updated = user
		return nil
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "user.update", id)
	s.bump(ctx)
	return updated, nil
}

// DeleteUser removes an account. Deleting the last user holding the admin
// role is rejected so the system never locks itself out. The admin count is
// taken inside the delete transaction with the pivot rows locked, so two
// concurrent deletes cannot both pass the check.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		names, err := tx.UserRoleNames(ctx, id)
		if err != nil {
			return err
		}
		if containsRole(names, shared.RoleAdmin) {
			admins, err := tx.CountUsersWithRoleForUpdate(ctx, shared.RoleAdmin)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return shared.NewInvariantError("last_admin_protected", "cannot delete the last %s user", shared.RoleAdmin)
			}
		}
		if err := tx.DetachAllRoles(ctx, id); err != nil {
			return err
		}
		if err := tx.DetachAllPermissions(ctx, id); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.delete", id)
	s.bump(ctx)
	return nil
}

// SetLanguage stores a preferred language for the user.
func (s *Service) SetLanguage(ctx context.Context, userID int64, language string) error {
	return s.repo.SetLanguage(ctx, userID, language)
}

// guardAdminDetach rejects role syncs that would strip the admin role from
// the last remaining admin.
func (s *Service) guardAdminDetach(ctx context.Context, userID int64, newRoleIDs []int64) error {
	names, err := s.repo.UserRoleNames(ctx, userID)
	if err != nil {
		return err
	}
	if !containsRole(names, shared.RoleAdmin) {
		return nil
	}
	adminRoleID, err := s.repo.RoleIDByName(ctx, shared.RoleAdmin)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	for _, id := range newRoleIDs {
		if id == adminRoleID {
			return nil
		}
	}
	admins, err := s.repo.CountUsersWithRole(ctx, shared.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return shared.NewInvariantError("last_admin_protected", "cannot remove the %s role from the last admin", shared.RoleAdmin)
	}
	return nil
}

func syncIDs(
	ctx context.Context,
	userID int64,
	want []int64,
	list func(context.Context, int64) ([]int64, error),
	attach func(context.Context, int64, int64) error,
	detach func(context.Context, int64, int64) error,
) error {
	current, err := list(ctx, userID)
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
			if err := attach(ctx, userID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := detach(ctx, userID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func containsRole(names []string, role string) bool {
	for _, n := range names {
		if n == role {
			return true
		}
	}
	return false
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.inval != nil {
		_ = s.inval.Bump(ctx)
	}
}
