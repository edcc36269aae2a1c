package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

type mockRepo struct {
	users   map[int64]struct{}
	byRole  map[int64][]string
	direct  map[int64][]string
	failure error
}

func (m *mockRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	if m.failure != nil {
		return false, m.failure
	}
	_, ok := m.users[userID]
	return ok, nil
}

func (m *mockRepo) RolePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	if m.failure != nil {
		return nil, m.failure
	}
	return m.byRole[userID], nil
}

func (m *mockRepo) DirectPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	if m.failure != nil {
		return nil, m.failure
	}
	return m.direct[userID], nil
}

func TestResolveUnionsRolesAndDirectGrants(t *testing.T) {
	repo := &mockRepo{
		users: map[int64]struct{}{1: {}},
		// Two roles with an overlapping grant plus one direct grant.
		byRole: map[int64][]string{1: {"view_posts", "edit_posts", "view_posts"}},
		direct: map[int64][]string{1: {"publish_posts"}},
	}
	resolver := NewResolver(repo)

	set, err := resolver.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"edit_posts", "publish_posts", "view_posts"}, set.Names())
}

func TestResolveUnknownUser(t *testing.T) {
	resolver := NewResolver(&mockRepo{users: map[int64]struct{}{}})
	_, err := resolver.Resolve(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolvePropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	resolver := NewResolver(&mockRepo{failure: boom})
	_, err := resolver.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}

func TestGateMatchesResolvedSet(t *testing.T) {
	repo := &mockRepo{
		users:  map[int64]struct{}{7: {}},
		byRole: map[int64][]string{7: {"view_users", "view_roles"}},
		direct: map[int64][]string{7: {"assign_roles"}},
	}
	resolver := NewResolver(repo)
	gate := NewGate(resolver)

	ctx := context.Background()
	set, err := resolver.Resolve(ctx, 7)
	require.NoError(t, err)

	for _, p := range []string{"view_users", "view_roles", "assign_roles", "delete_users", "edit_roles"} {
		allowed, err := gate.Allows(ctx, 7, p)
		require.NoError(t, err)
		assert.Equal(t, set.Has(p), allowed, "gate and resolver disagree on %s", p)
	}
}

func TestGateAllowsAny(t *testing.T) {
	repo := &mockRepo{
		users:  map[int64]struct{}{3: {}},
		byRole: map[int64][]string{3: {"view_users"}},
	}
	gate := NewGate(NewResolver(repo))

	allowed, err := gate.AllowsAny(context.Background(), 3, "delete_users", "view_users")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = gate.AllowsAny(context.Background(), 3, "delete_users", "edit_users")
	require.NoError(t, err)
	assert.False(t, allowed)
}

// Scenario from the editor workflow: alice holds the editor role plus a
// direct publish grant.
func TestEditorScenario(t *testing.T) {
	repo := &mockRepo{
		users:  map[int64]struct{}{10: {}},
		byRole: map[int64][]string{10: {"view_posts", "edit_posts"}},
		direct: map[int64][]string{10: {"publish_posts"}},
	}
	resolver := NewResolver(repo)
	gate := NewGate(resolver)

	set, err := resolver.Resolve(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"edit_posts", "publish_posts", "view_posts"}, set.Names())

	allowed, err := gate.Allows(context.Background(), 10, "delete_posts")
	require.NoError(t, err)
	assert.False(t, allowed)
}
