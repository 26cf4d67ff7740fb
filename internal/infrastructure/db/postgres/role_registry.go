package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

var _ ports.RoleRegistry = (*RoleRegistry)(nil)

type RoleRegistry struct {
	db *DB
}

func NewRoleRegistry(db *DB) *RoleRegistry {
	return &RoleRegistry{db: db}
}

// EnsureRole creates the role if absent. ON CONFLICT turns a concurrent
// insert of the same name into a no-op.
func (r *RoleRegistry) EnsureRole(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.db.pool.Exec(ctx,
		`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return nil, fmt.Errorf("%w: ensure role %q: %w", domain.ErrStorage, name, err)
	}

	var role domain.Role
	if err := r.db.pool.QueryRow(ctx,
		`SELECT name, created_at FROM roles WHERE name = $1`, name).Scan(&role.Name, &role.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: load role %q: %w", domain.ErrStorage, name, err)
	}
	role.CreatedAt = role.CreatedAt.UTC()
	return &role, nil
}

// Assign adds the membership and touches users.updated_at in one statement.
// Assigning a role the user already has is a no-op.
func (r *RoleRegistry) Assign(ctx context.Context, userID, roleName string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.pool.Exec(ctx, `
		WITH added AS (
			INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
			RETURNING user_id
		)
		UPDATE users SET updated_at = NOW() WHERE id IN (SELECT user_id FROM added)`,
		userID, roleName)
	if err != nil {
		return mapAssignErr(err, func() (bool, error) { return r.userExists(ctx, userID) })
	}
	return nil
}

// mapAssignErr reports ErrUserNotFound only when a foreign key violation is
// confirmed to be caused by a missing user.
func mapAssignErr(err error, userExists func() (bool, error)) error {
	if pgCode(err) == codeForeignKeyViolation {
		exists, lookupErr := userExists()
		if lookupErr != nil {
			return fmt.Errorf("%w: assign role: %w (user lookup: %w)", domain.ErrStorage, err, lookupErr)
		}
		if !exists {
			return domain.ErrUserNotFound
		}
	}
	return fmt.Errorf("%w: assign role: %w", domain.ErrStorage, err)
}

func (r *RoleRegistry) RolesOf(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var roles []string
	err := r.db.pool.QueryRow(ctx, `
		SELECT COALESCE(array_agg(ur.role_name ORDER BY ur.seq) FILTER (WHERE ur.role_name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`, userID).Scan(&roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: roles of user: %w", domain.ErrStorage, err)
	}
	return roles, nil
}

func (r *RoleRegistry) List(ctx context.Context) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.pool.Query(ctx, `SELECT name, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %w", domain.ErrStorage, err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Role, error) {
		var role domain.Role
		if err := row.Scan(&role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		role.CreatedAt = role.CreatedAt.UTC()
		return &role, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %w", domain.ErrStorage, err)
	}
	return roles, nil
}

func (r *RoleRegistry) userExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}
