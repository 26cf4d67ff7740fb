package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

var _ ports.CredentialStore = (*CredentialStore)(nil)

// CredentialStore provides Postgres-backed persistence for identities.
type CredentialStore struct {
	db *DB
}

func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

const selectUser = `
	SELECT u.id, u.username, u.display_name, u.password_hash, u.created_at, u.updated_at,
	(
		SELECT COALESCE(array_agg(ur.role_name ORDER BY ur.seq), '{}')
		FROM user_roles ur
		WHERE ur.user_id = u.id
	)
	FROM users u
`

// Create inserts the user and its initial role memberships in one transaction.
func (s *CredentialStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", domain.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, username_normalized, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, domain.NormalizeUsername(user.Username), user.DisplayName,
		user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		return nil, mapInsertErr("insert user", err)
	}

	for _, role := range user.Roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			user.ID, role); err != nil {
			return nil, fmt.Errorf("%w: insert user role %q: %w", domain.ErrStorage, role, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapInsertErr("commit", err)
	}

	created := *user
	created.Roles = append([]string{}, user.Roles...)
	created.CreatedAt = user.CreatedAt.UTC()
	created.UpdatedAt = user.UpdatedAt.UTC()
	return &created, nil
}

// mapInsertErr turns a unique violation on username_normalized into
// domain.ErrDuplicateUsername.
func mapInsertErr(op string, err error) error {
	if pgCode(err) == codeUniqueViolation {
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	row := s.db.pool.QueryRow(ctx, selectUser+`WHERE u.username_normalized = $1`, domain.NormalizeUsername(username))
	return scanUser(row)
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	row := s.db.pool.QueryRow(ctx, selectUser+`WHERE u.id = $1`, id)
	return scanUser(row)
}

func (s *CredentialStore) Exists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err := s.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username_normalized = $1)`,
		domain.NormalizeUsername(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", domain.ErrStorage, err)
	}
	return exists, nil
}

func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := s.db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete user: %w", domain.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *CredentialStore) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.pool.Query(ctx, selectUser+`ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list users: %w", domain.ErrStorage, err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &u.Roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: scan user: %w", domain.ErrStorage, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
