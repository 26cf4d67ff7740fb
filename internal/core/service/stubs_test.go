package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub stores
// ---------------------------------------------------------------------------

// memDB is shared state for the credential and role stubs. The byName map
// plays the role of the unique index on the normalized username.
type memDB struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	byName map[string]string
	roles  map[string]*domain.Role

	findErr   error // returned by FindByUsername when set
	createErr error // returned by Create after the user is stored
	assignErr error // returned by Assign when set
	rolesErr  error // returned by RolesOf when set
}

func newMemDB() *memDB {
	return &memDB{
		byID:   make(map[string]*domain.User),
		byName: make(map[string]string),
		roles:  make(map[string]*domain.Role),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

type stubCredentialStore struct{ db *memDB }

func (s *stubCredentialStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.findErr != nil {
		return nil, s.db.findErr
	}
	id, ok := s.db.byName[domain.NormalizeUsername(username)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(s.db.byID[id]), nil
}

func (s *stubCredentialStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *stubCredentialStore) Exists(_ context.Context, username string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.byName[domain.NormalizeUsername(username)]
	return ok, nil
}

func (s *stubCredentialStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	// Yield so concurrent callers interleave between Exists and Create.
	time.Sleep(time.Millisecond)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := domain.NormalizeUsername(user.Username)
	if _, taken := s.db.byName[key]; taken {
		return nil, domain.ErrDuplicateUsername
	}
	s.db.byName[key] = user.ID
	s.db.byID[user.ID] = cloneUser(user)
	if s.db.createErr != nil {
		return nil, s.db.createErr
	}
	return cloneUser(user), nil
}

func (s *stubCredentialStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.db.byName, domain.NormalizeUsername(u.Username))
	delete(s.db.byID, id)
	return nil
}

func (s *stubCredentialStore) List(_ context.Context) ([]*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]*domain.User, 0, len(s.db.byID))
	for _, u := range s.db.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type stubRoleRegistry struct {
	db *memDB
}

func (r *stubRoleRegistry) EnsureRole(_ context.Context, name string) (*domain.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if role, ok := r.db.roles[name]; ok {
		return role, nil
	}
	role := &domain.Role{Name: name, CreatedAt: time.Now().UTC()}
	r.db.roles[name] = role
	return role, nil
}

func (r *stubRoleRegistry) Assign(_ context.Context, userID, roleName string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.assignErr != nil {
		return r.db.assignErr
	}
	u, ok := r.db.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !u.HasRole(roleName) {
		u.Roles = append(u.Roles, roleName)
	}
	return nil
}

func (r *stubRoleRegistry) RolesOf(_ context.Context, userID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.rolesErr != nil {
		return nil, r.db.rolesErr
	}
	u, ok := r.db.byID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return append([]string(nil), u.Roles...), nil
}

func (r *stubRoleRegistry) List(_ context.Context) ([]*domain.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*domain.Role, 0, len(r.db.roles))
	for _, role := range r.db.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------------------------------------------------------------------------
// Hasher, throttle and event stubs
// ---------------------------------------------------------------------------

type stubHasher struct{ err error }

func (h stubHasher) Hash(raw string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + raw, nil
}

func (h stubHasher) Verify(raw, hash string) bool {
	return hash == "hashed:"+raw
}

type stubThrottle struct {
	locked   bool
	failures map[string]int
	resets   map[string]int
	err      error
}

func newStubThrottle() *stubThrottle {
	return &stubThrottle{failures: map[string]int{}, resets: map[string]int{}}
}

func (t *stubThrottle) Locked(_ context.Context, _ string) (bool, error) {
	return t.locked, t.err
}

func (t *stubThrottle) RecordFailure(_ context.Context, key string) error {
	t.failures[key]++
	return t.err
}

func (t *stubThrottle) Reset(_ context.Context, key string) error {
	t.resets[key]++
	return t.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (s *recordingSink) Enqueue(e domain.AuthEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []domain.AuthEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	discardLogger = zerolog.Nop()
	errBoom       = errors.New("boom")
)
