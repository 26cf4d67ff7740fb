package ports

import (
	"context"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

// CredentialStore persists identity records. Lookups and uniqueness use the
// normalized username (trimmed, case-insensitive).
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	// Create inserts a user whose PasswordHash is already set. A collision on
	// the normalized username returns domain.ErrDuplicateUsername.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	// List returns every user ordered by username.
	List(ctx context.Context) ([]*domain.User, error)
}
