package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

type mockRepository struct {
	perms     map[int64]*Permission
	nextID    int64
	roleIDs   map[string]int64
	attached  map[int64][]int64 // permission id -> role ids
	roleLinks map[int64]int     // permission id -> remaining role links
	userLinks map[int64]int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		perms:     make(map[int64]*Permission),
		nextID:    1,
		roleIDs:   map[string]int64{shared.RoleAdmin: 1},
		attached:  make(map[int64][]int64),
		roleLinks: make(map[int64]int),
		userLinks: make(map[int64]int),
	}
}

func (m *mockRepository) seed(name, category string) *Permission {
	id := m.nextID
	m.nextID++
	p := &Permission{ID: id, Name: name, Category: category, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.perms[id] = p
	return p
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	for _, p := range m.perms {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return *p, nil
}

func (m *mockRepository) CreatePermission(ctx context.Context, name, description, category string) (Permission, error) {
	p := m.seed(name, category)
	p.Description = description
	return *p, nil
}

func (m *mockRepository) UpdatePermission(ctx context.Context, id int64, name, description, category string) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	p.Name = name
	p.Description = description
	p.Category = category
	return *p, nil
}

func (m *mockRepository) DeletePermission(ctx context.Context, id int64) error {
	if _, ok := m.perms[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.perms, id)
	return nil
}

func (m *mockRepository) DetachFromRoles(ctx context.Context, permissionID int64) error {
	m.roleLinks[permissionID] = 0
	return nil
}

func (m *mockRepository) DetachFromUsers(ctx context.Context, permissionID int64) error {
	m.userLinks[permissionID] = 0
	return nil
}

func (m *mockRepository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	id, ok := m.roleIDs[name]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

func (m *mockRepository) AttachToRole(ctx context.Context, permissionID, roleID int64) error {
	m.attached[permissionID] = append(m.attached[permissionID], roleID)
	return nil
}

func TestCreateAttachesToAdminRole(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	perm, err := svc.CreatePermission(context.Background(), 9, "approve_posts", "", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{repo.roleIDs[shared.RoleAdmin]}, repo.attached[perm.ID])
}

func TestCreateDefaultsCategoryFromName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	perm, err := svc.CreatePermission(context.Background(), 9, "export_sales_reports", "", "")
	require.NoError(t, err)
	assert.Equal(t, "sales_reports", perm.Category)

	perm, err = svc.CreatePermission(context.Background(), 9, "impersonate", "", "")
	require.NoError(t, err)
	assert.Equal(t, "impersonate", perm.Category)

	perm, err = svc.CreatePermission(context.Background(), 9, "view_tickets", "", "support")
	require.NoError(t, err)
	assert.Equal(t, "support", perm.Category)
}

func TestDeleteRejectsCorePermission(t *testing.T) {
	repo := newMockRepository()
	core := repo.seed(shared.PermViewUsers, "users")
	svc := NewService(repo, nil, nil)

	err := svc.DeletePermission(context.Background(), 9, core.ID)
	require.Error(t, err)
	assert.True(t, shared.IsInvariant(err))
	_, err = repo.GetPermission(context.Background(), core.ID)
	assert.NoError(t, err)
}

func TestDeleteDetachesEverywhere(t *testing.T) {
	repo := newMockRepository()
	custom := repo.seed("approve_posts", "posts")
	repo.roleLinks[custom.ID] = 2
	repo.userLinks[custom.ID] = 1
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.DeletePermission(context.Background(), 9, custom.ID))
	assert.Zero(t, repo.roleLinks[custom.ID])
	assert.Zero(t, repo.userLinks[custom.ID])
	_, err := repo.GetPermission(context.Background(), custom.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRejectsRenamingCorePermission(t *testing.T) {
	repo := newMockRepository()
	core := repo.seed(shared.PermViewUsers, "users")
	svc := NewService(repo, nil, nil)

	_, err := svc.UpdatePermission(context.Background(), 9, core.ID, "see_users", "", "")
	require.Error(t, err)
	assert.True(t, shared.IsInvariant(err))

	// Description and category edits stay allowed.
	updated, err := svc.UpdatePermission(context.Background(), 9, core.ID, shared.PermViewUsers, "list accounts", "accounts")
	require.NoError(t, err)
	assert.Equal(t, "accounts", updated.Category)
}
