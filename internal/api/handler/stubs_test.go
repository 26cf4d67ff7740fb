package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, username, password, displayName, role string) (*domain.PublicUser, error)
	loginFn    func(ctx context.Context, username, password string) (*domain.LoginResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, username, password, displayName, role string) (*domain.PublicUser, error) {
	return s.registerFn(ctx, username, password, displayName, role)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

type stubUserService struct {
	listFn      func(ctx context.Context) ([]*domain.PublicUser, error)
	getFn       func(ctx context.Context, id string) (*domain.PublicUser, error)
	assignFn    func(ctx context.Context, userID, role string) (*domain.PublicUser, error)
	listRolesFn func(ctx context.Context) ([]*domain.Role, error)
}

func (s *stubUserService) ListUsers(ctx context.Context) ([]*domain.PublicUser, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*domain.PublicUser, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) AssignRole(ctx context.Context, userID, role string) (*domain.PublicUser, error) {
	return s.assignFn(ctx, userID, role)
}

func (s *stubUserService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.listRolesFn(ctx)
}

// newJSONContext builds an echo context with the validator installed, the
// way the router configures it.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// withClaims mimics the Auth middleware.
func withClaims(c echo.Context, userID string, roles ...string) {
	c.Set("user_id", userID)
	c.Set("username", "user-"+userID)
	if len(roles) > 0 {
		c.Set("role", roles[0])
	}
	c.Set("roles", roles)
}
