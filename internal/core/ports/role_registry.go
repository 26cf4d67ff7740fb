package ports

import (
	"context"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

// RoleRegistry manages known roles and user memberships.
type RoleRegistry interface {
	// EnsureRole returns the named role, creating it when absent. Idempotent.
	EnsureRole(ctx context.Context, name string) (*domain.Role, error)
	// Assign attaches roleName to the user. No-op if already assigned.
	Assign(ctx context.Context, userID, roleName string) error
	// RolesOf returns the user's roles in assignment order.
	RolesOf(ctx context.Context, userID string) ([]string, error)
	List(ctx context.Context) ([]*domain.Role, error)
}
