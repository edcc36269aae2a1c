package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Manager handles service credential business logic.
type Manager struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
}

// NewManager builds Manager instance.
func NewManager(repo RepositoryPort, audit *shared.AuditLogger) *Manager {
	return &Manager{repo: repo, audit: audit}
}

// List returns all registered services.
func (m *Manager) List(ctx context.Context) ([]Service, error) {
	return m.repo.ListServices(ctx)
}

// Get fetches one service credential.
func (m *Manager) Get(ctx context.Context, id int64) (Service, error) {
	return m.repo.GetService(ctx, id)
}

// Register creates a credential with a generated service_id and secret.
func (m *Manager) Register(ctx context.Context, actorID int64, name string, permissions []string) (Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Service{}, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	secret, err := NewSecret()
	if err != nil {
		return Service{}, err
	}
	if permissions == nil {
		permissions = []string{}
	}
	created, err := m.repo.CreateService(ctx, Service{
		Name:          name,
		ServiceID:     uuid.NewString(),
		ServiceSecret: secret,
		Permissions:   permissions,
		IsActive:      true,
	})
	if err != nil {
		return Service{}, err
	}
	m.recordAudit(ctx, actorID, "service.register", created.ID)
	return created, nil
}

// Update edits the mutable fields of a credential.
func (m *Manager) Update(ctx context.Context, actorID, id int64, name string, permissions []string, isActive bool) (Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Service{}, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	if permissions == nil {
		permissions = []string{}
	}
	updated, err := m.repo.UpdateService(ctx, id, name, permissions, isActive)
	if err != nil {
		return Service{}, err
	}
	m.recordAudit(ctx, actorID, "service.update", id)
	return updated, nil
}

// RegenerateSecret replaces the secret in place. The previous secret stops
// working the moment the row is updated.
func (m *Manager) RegenerateSecret(ctx context.Context, actorID, id int64) (Service, error) {
	secret, err := NewSecret()
	if err != nil {
		return Service{}, err
	}
	updated, err := m.repo.UpdateSecret(ctx, id, secret)
	if err != nil {
		return Service{}, err
	}
	m.recordAudit(ctx, actorID, "service.rotate_secret", id)
	return updated, nil
}

// Delete removes a credential.
func (m *Manager) Delete(ctx context.Context, actorID, id int64) error {
	if err := m.repo.DeleteService(ctx, id); err != nil {
		return err
	}
	m.recordAudit(ctx, actorID, "service.delete", id)
	return nil
}

func (m *Manager) recordAudit(ctx context.Context, actorID int64, action string, id int64) {
	if m.audit == nil {
		return
	}
	_ = m.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "service",
		EntityID: strconv.FormatInt(id, 10),
	})
}
