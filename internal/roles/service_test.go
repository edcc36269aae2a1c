package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

type mockRepository struct {
	roles      map[int64]*Role
	rolePerms  map[int64]map[int64]struct{}
	roleUsers  map[int64]map[int64]struct{}
	nextRoleID int64
	totalUsers int64

	attachCalls int
	detachCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:      make(map[int64]*Role),
		rolePerms:  make(map[int64]map[int64]struct{}),
		roleUsers:  make(map[int64]map[int64]struct{}),
		nextRoleID: 1,
	}
}

func (m *mockRepository) seedRole(name string, permIDs ...int64) *Role {
	id := m.nextRoleID
	m.nextRoleID++
	role := &Role{ID: id, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.roles[id] = role
	m.rolePerms[id] = make(map[int64]struct{})
	for _, p := range permIDs {
		m.rolePerms[id][p] = struct{}{}
	}
	return role
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	cp := *role
	for p := range m.rolePerms[id] {
		cp.PermissionIDs = append(cp.PermissionIDs, p)
	}
	return cp, nil
}

func (m *mockRepository) Statistics(ctx context.Context) ([]Stat, int64, error) {
	var stats []Stat
	for id, role := range m.roles {
		stats = append(stats, Stat{ID: id, Name: role.Name, UserCount: int64(len(m.roleUsers[id]))})
	}
	return stats, m.totalUsers, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role := m.seedRole(name)
	role.Description = description
	return *role, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	return *role, nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRepository) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	for p := range m.rolePerms[roleID] {
		ids = append(ids, p)
	}
	return ids, nil
}

func (m *mockRepository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	m.attachCalls++
	if m.rolePerms[roleID] == nil {
		m.rolePerms[roleID] = make(map[int64]struct{})
	}
	m.rolePerms[roleID][permissionID] = struct{}{}
	return nil
}

func (m *mockRepository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	m.detachCalls++
	delete(m.rolePerms[roleID], permissionID)
	return nil
}

func (m *mockRepository) DetachAllPermissions(ctx context.Context, roleID int64) error {
	m.rolePerms[roleID] = make(map[int64]struct{})
	return nil
}

func (m *mockRepository) DetachAllUsers(ctx context.Context, roleID int64) error {
	m.roleUsers[roleID] = make(map[int64]struct{})
	return nil
}

func TestUpdateRejectsAdminRole(t *testing.T) {
	repo := newMockRepository()
	admin := repo.seedRole(shared.RoleAdmin, 1, 2, 3)
	svc := NewService(repo, nil, nil)

	_, err := svc.UpdateRole(context.Background(), 99, admin.ID, "superuser", "", []int64{1})
	require.Error(t, err)
	assert.True(t, shared.IsInvariant(err))

	// Nothing changed.
	got, err := repo.GetRole(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, got.Name)
	assert.Len(t, got.PermissionIDs, 3)
}

func TestDeleteRejectsAdminRole(t *testing.T) {
	repo := newMockRepository()
	admin := repo.seedRole(shared.RoleAdmin)
	svc := NewService(repo, nil, nil)

	err := svc.DeleteRole(context.Background(), 99, admin.ID)
	require.Error(t, err)
	assert.True(t, shared.IsInvariant(err))
	_, err = repo.GetRole(context.Background(), admin.ID)
	assert.NoError(t, err)
}

func TestDeleteDetachesBeforeRemoving(t *testing.T) {
	repo := newMockRepository()
	editor := repo.seedRole("editor", 4, 5)
	repo.roleUsers[editor.ID] = map[int64]struct{}{1: {}, 2: {}}
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.DeleteRole(context.Background(), 99, editor.ID))
	assert.Empty(t, repo.rolePerms[editor.ID])
	assert.Empty(t, repo.roleUsers[editor.ID])
	_, err := repo.GetRole(context.Background(), editor.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateSyncsPermissionDiff(t *testing.T) {
	repo := newMockRepository()
	editor := repo.seedRole("editor", 1, 2)
	svc := NewService(repo, nil, nil)

	updated, err := svc.UpdateRole(context.Background(), 99, editor.ID, "editor", "content team", []int64{2, 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, updated.PermissionIDs)
	// Only the delta is applied: attach 3, detach 1.
	assert.Equal(t, 1, repo.attachCalls)
	assert.Equal(t, 1, repo.detachCalls)
}

func TestStatisticsPercentages(t *testing.T) {
	repo := newMockRepository()
	admin := repo.seedRole(shared.RoleAdmin)
	member := repo.seedRole(shared.RoleUser)
	repo.roleUsers[admin.ID] = map[int64]struct{}{1: {}}
	repo.roleUsers[member.ID] = map[int64]struct{}{1: {}, 2: {}, 3: {}}
	repo.totalUsers = 8
	svc := NewService(repo, nil, nil)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	byName := make(map[string]Stat)
	for _, s := range stats {
		byName[s.Name] = s
	}
	assert.Equal(t, 12.5, byName[shared.RoleAdmin].Percentage)
	assert.Equal(t, 37.5, byName[shared.RoleUser].Percentage)
}

func TestStatisticsZeroUsers(t *testing.T) {
	repo := newMockRepository()
	repo.seedRole(shared.RoleAdmin)
	repo.totalUsers = 0
	svc := NewService(repo, nil, nil)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	for _, s := range stats {
		assert.Zero(t, s.Percentage)
	}
}
