package rbac

import (
	"context"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Resolver computes effective permission sets. Every call re-reads the role
// and permission associations; grants change rarely enough that a cache in
// front of the joins has not been worth the invalidation traffic.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the union of the user's role permissions and direct
// permissions. Returns shared.ErrNotFound when the user does not exist.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (PermissionSet, error) {
	exists, err := r.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}

	viaRoles, err := r.repo.RolePermissionNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	direct, err := r.repo.DirectPermissionNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := NewPermissionSet(viaRoles...)
	for _, name := range direct {
		set.Add(name)
	}
	return set, nil
}
