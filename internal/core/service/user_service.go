package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

type UserService struct {
	store  ports.CredentialStore
	roles  ports.RoleRegistry
	events ports.EventSink
	logger zerolog.Logger
}

func NewUserService(store ports.CredentialStore, roles ports.RoleRegistry, events ports.EventSink, logger zerolog.Logger) *UserService {
	return &UserService{store: store, roles: roles, events: events, logger: logger}
}

// ListUsers returns every identity ordered by username.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.PublicUser, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.PublicUser, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u.Public(), nil
}

// AssignRole attaches a role to an existing user, creating the role on demand.
func (s *UserService) AssignRole(ctx context.Context, userID, role string) (*domain.PublicUser, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, fmt.Errorf("%w: role is required", domain.ErrValidation)
	}

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	if _, err := s.roles.EnsureRole(ctx, role); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	if err := s.roles.Assign(ctx, u.ID, role); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	roles, err := s.roles.RolesOf(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	u.Roles = roles

	s.logger.Info().Str("user_id", u.ID).Str("role", role).Msg("role assigned")
	if s.events != nil {
		s.events.Enqueue(domain.AuthEvent{
			Type:       domain.EventUserRoleAssigned,
			UserID:     u.ID,
			Username:   u.Username,
			Role:       role,
			OccurredAt: time.Now().UTC(),
		})
	}
	return u.Public(), nil
}

func (s *UserService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
