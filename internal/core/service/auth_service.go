package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

// LoginThrottle abstracts the failed-login counter (Redis).
type LoginThrottle interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// AuthOptions carries the optional collaborators and policies of AuthService.
type AuthOptions struct {
	Throttle LoginThrottle
	Events   ports.EventSink
	// UniformLoginErrors answers "Invalid credentials" for both unknown
	// usernames and wrong passwords.
	UniformLoginErrors bool
	// DefaultRole is assigned when Register is called without a role.
	DefaultRole string
	Now         func() time.Time
}

// AuthService implements registration and login.
type AuthService struct {
	store  ports.CredentialStore
	roles  ports.RoleRegistry
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	opts   AuthOptions
	log    zerolog.Logger
}

func NewAuthService(
	store ports.CredentialStore,
	roles ports.RoleRegistry,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	log zerolog.Logger,
	opts AuthOptions,
) *AuthService {
	if opts.DefaultRole == "" {
		opts.DefaultRole = domain.RoleUser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuthService{
		store:  store,
		roles:  roles,
		hasher: hasher,
		tokens: tokens,
		opts:   opts,
		log:    log,
	}
}

// Register creates a new identity with a single initial role. A failure after
// the insert removes the user again, so lookups never see a half-registered
// account.
func (s *AuthService) Register(ctx context.Context, username, password, displayName, role string) (*domain.PublicUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	// 1. Fast uniqueness probe. The unique index re-checks on insert.
	taken, err := s.store.Exists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}

	// 2. Hash before anything is persisted.
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	// 3. Resolve the role so the user is written with it in one insert.
	roleName := strings.TrimSpace(role)
	if roleName == "" {
		roleName = s.opts.DefaultRole
	}
	if _, err := s.roles.EnsureRole(ctx, roleName); err != nil {
		return nil, fmt.Errorf("register: ensure role: %w", err)
	}

	now := s.opts.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Roles:        []string{roleName},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 4. Atomic insert; the losing side of a race gets ErrDuplicateUsername.
	// Any other error may come after the row was committed, so it is removed.
	created, err := s.store.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, domain.ErrDuplicateUsername
		}
		s.abortRegistration(ctx, user)
		return nil, fmt.Errorf("register: %w", err)
	}

	// 5. Confirm membership through the registry.
	if err := s.roles.Assign(ctx, created.ID, roleName); err != nil {
		s.abortRegistration(ctx, created)
		return nil, fmt.Errorf("register: assign role: %w", err)
	}

	// 6. Re-read for storage-assigned fields.
	stored, err := s.store.FindByID(ctx, created.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", created.ID).Msg("re-read after register failed")
		stored = created
	}

	s.log.Info().
		Str("user_id", stored.ID).
		Str("username", stored.Username).
		Str("role", roleName).
		Msg("user registered")

	s.emit(domain.EventUserRegistered, stored, roleName)
	return stored.Public(), nil
}

func (s *AuthService) abortRegistration(ctx context.Context, user *domain.User) {
	err := s.store.Delete(context.WithoutCancel(ctx), user.ID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to roll back aborted registration")
	}
}

// Login authenticates a user. Every authentication outcome is a LoginResult;
// only storage or signing faults return an error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	if strings.TrimSpace(username) == "" {
		return failedLogin(domain.MsgUsernameRequired), nil
	}

	key := domain.NormalizeUsername(username)
	if s.opts.Throttle != nil {
		locked, err := s.opts.Throttle.Locked(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("username", key).Msg("throttle check failed, continuing")
		} else if locked {
			return failedLogin(domain.MsgTooManyAttempts), nil
		}
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return failedLogin(s.credentialMessage(domain.MsgUsernameNotFound)), nil
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if password == "" {
		return failedLogin(domain.MsgPasswordRequired), nil
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordFailure(ctx, key)
		return failedLogin(s.credentialMessage(domain.MsgWrongCredentials)), nil
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: roles: %w", err)
	}
	user.Roles = roles

	token, _, err := s.tokens.Issue(domain.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.PrimaryRole(),
		Roles:    roles,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.opts.Throttle != nil {
		if err := s.opts.Throttle.Reset(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("username", key).Msg("failed to reset login throttle")
		}
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user logged in")
	s.emit(domain.EventUserLoggedIn, user, user.PrimaryRole())

	return &domain.LoginResult{
		Token:   token,
		User:    user.Public(),
		Message: domain.MsgLoginSuccessful,
	}, nil
}

func (s *AuthService) credentialMessage(specific string) string {
	if s.opts.UniformLoginErrors {
		return domain.MsgInvalidCredentials
	}
	return specific
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.opts.Throttle == nil {
		return
	}
	if err := s.opts.Throttle.RecordFailure(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("username", key).Msg("failed to record login failure")
	}
}

func (s *AuthService) emit(t domain.AuthEventType, user *domain.User, role string) {
	if s.opts.Events == nil {
		return
	}
	s.opts.Events.Enqueue(domain.AuthEvent{
		Type:       t,
		UserID:     user.ID,
		Username:   user.Username,
		Role:       role,
		OccurredAt: s.opts.Now().UTC(),
	})
}

func failedLogin(msg string) *domain.LoginResult {
	return &domain.LoginResult{Message: msg}
}
