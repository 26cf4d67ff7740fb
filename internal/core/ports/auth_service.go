package ports

import (
	"context"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, displayName, role string) (*domain.PublicUser, error)
	// Login returns a typed result for authentication failures; the error is
	// reserved for infrastructure faults.
	Login(ctx context.Context, username, password string) (*domain.LoginResult, error)
}

// UserService exposes read and administrative operations on identities.
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.PublicUser, error)
	GetUser(ctx context.Context, id string) (*domain.PublicUser, error)
	AssignRole(ctx context.Context, userID, role string) (*domain.PublicUser, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
}
