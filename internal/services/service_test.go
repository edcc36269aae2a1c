package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

type mockRepository struct {
	nextID   int64
	services map[int64]Service
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, services: make(map[int64]Service)}
}

func (m *mockRepository) ListServices(_ context.Context) ([]Service, error) {
	out := make([]Service, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc)
	}
	return out, nil
}

func (m *mockRepository) GetService(_ context.Context, id int64) (Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return Service{}, shared.ErrNotFound
	}
	return svc, nil
}

func (m *mockRepository) CreateService(_ context.Context, svc Service) (Service, error) {
	svc.ID = m.nextID
	m.nextID++
	m.services[svc.ID] = svc
	return svc, nil
}

func (m *mockRepository) UpdateService(_ context.Context, id int64, name string, permissions []string, isActive bool) (Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return Service{}, shared.ErrNotFound
	}
	svc.Name = name
	svc.Permissions = permissions
	svc.IsActive = isActive
	m.services[id] = svc
	return svc, nil
}

func (m *mockRepository) UpdateSecret(_ context.Context, id int64, secret string) (Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return Service{}, shared.ErrNotFound
	}
	svc.ServiceSecret = secret
	m.services[id] = svc
	return svc, nil
}

func (m *mockRepository) DeleteService(_ context.Context, id int64) error {
	if _, ok := m.services[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func TestRegisterGeneratesCredentials(t *testing.T) {
	repo := newMockRepository()
	manager := NewManager(repo, nil)

	svc, err := manager.Register(context.Background(), 1, "billing-service", []string{"view_users"})
	require.NoError(t, err)

	require.NotEmpty(t, svc.ServiceID)
	require.Len(t, svc.ServiceSecret, 32)
	require.True(t, svc.IsActive)
	require.Equal(t, []string{"view_users"}, svc.Permissions)
}

func TestRegisterRejectsBlankName(t *testing.T) {
	manager := NewManager(newMockRepository(), nil)

	_, err := manager.Register(context.Background(), 1, "   ", nil)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRegenerateSecretReplacesSecret(t *testing.T) {
	repo := newMockRepository()
	manager := NewManager(repo, nil)

	svc, err := manager.Register(context.Background(), 1, "reporting-service", nil)
	require.NoError(t, err)
	original := svc.ServiceSecret

	rotated, err := manager.RegenerateSecret(context.Background(), 1, svc.ID)
	require.NoError(t, err)

	require.Len(t, rotated.ServiceSecret, 32)
	require.NotEqual(t, original, rotated.ServiceSecret)
}

func TestSecretIsAlphanumeric(t *testing.T) {
	for i := 0; i < 20; i++ {
		secret, err := NewSecret()
		require.NoError(t, err)
		require.Len(t, secret, 32)
		for _, r := range secret {
			isDigit := r >= '0' && r <= '9'
			isLower := r >= 'a' && r <= 'z'
			isUpper := r >= 'A' && r <= 'Z'
			require.True(t, isDigit || isLower || isUpper, "unexpected rune %q", r)
		}
	}
}

func TestUpdateReplacesPermissions(t *testing.T) {
	repo := newMockRepository()
	manager := NewManager(repo, nil)

	svc, err := manager.Register(context.Background(), 1, "inventory-service", []string{"view_users", "view_roles"})
	require.NoError(t, err)

	updated, err := manager.Update(context.Background(), 1, svc.ID, "inventory-service", []string{"view_dashboard"}, false)
	require.NoError(t, err)

	require.Equal(t, []string{"view_dashboard"}, updated.Permissions)
	require.False(t, updated.IsActive)
}
