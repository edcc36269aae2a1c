package rbac

import "context"

// Gate is the boolean authorization predicate consulted before every
// protected operation. There is no special case for the admin role: the
// admin role is granted every permission at creation time, so membership in
// the resolved set is the whole story.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate over the given resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Allows reports whether the user holds the named permission.
func (g *Gate) Allows(ctx context.Context, userID int64, permission string) (bool, error) {
	set, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.Has(permission), nil
}

// AllowsAny reports whether the user holds at least one of the named
// permissions.
func (g *Gate) AllowsAny(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	set, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if set.Has(p) {
			return true, nil
		}
	}
	return false, nil
}
