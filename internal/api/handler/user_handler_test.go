package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

func TestUserHandler_List(t *testing.T) {
	stub := &stubUserService{
		listFn: func(context.Context) ([]*domain.PublicUser, error) {
			return []*domain.PublicUser{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/users", "")
	withClaims(c, "u1", domain.RoleUser)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 2 || resp.Users[1].Username != "bob" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	stub := &stubUserService{
		listFn: func(context.Context) ([]*domain.PublicUser, error) { return nil, nil },
	}
	h := NewUserHandler(stub)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/users", "")
	withClaims(c, "u1", domain.RoleUser)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Body.String(); got != "{\"users\":[],\"total\":0}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestUserHandler_List_RequiresClaims(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	c, _ := newJSONContext(http.MethodGet, "/api/v1/users", "")
	err := h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 http error, got %v", err)
	}
}

func TestUserHandler_Get_OwnRecord(t *testing.T) {
	stub := &stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.PublicUser, error) {
			return &domain.PublicUser{ID: id, Username: "alice"}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/users/u1", "")
	c.SetParamNames("id")
	c.SetParamValues("u1")
	withClaims(c, "u1", domain.RoleUser)

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_Get_OtherUserForbiddenForNonAdmin(t *testing.T) {
	h := NewUserHandler(&stubUserService{
		getFn: func(context.Context, string) (*domain.PublicUser, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	})

	c, _ := newJSONContext(http.MethodGet, "/api/v1/users/u2", "")
	c.SetParamNames("id")
	c.SetParamValues("u2")
	withClaims(c, "u1", domain.RoleUser)

	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUserHandler_Get_AdminInRoleSetReadsAnyone(t *testing.T) {
	h := NewUserHandler(&stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.PublicUser, error) {
			return &domain.PublicUser{ID: id}, nil
		},
	})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/users/u2", "")
	c.SetParamNames("id")
	c.SetParamValues("u2")
	withClaims(c, "u1", domain.RoleUser, domain.RoleAdmin)

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_AssignRole(t *testing.T) {
	stub := &stubUserService{
		assignFn: func(ctx context.Context, userID, role string) (*domain.PublicUser, error) {
			if userID != "u2" || role != "Editor" {
				t.Fatalf("unexpected args %s %s", userID, role)
			}
			return &domain.PublicUser{ID: userID, Roles: []string{domain.RoleUser, role}}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/api/v1/users/u2/roles", `{"role":"Editor"}`)
	c.SetParamNames("id")
	c.SetParamValues("u2")

	if err := h.AssignRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp domain.PublicUser
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Roles) != 2 || resp.Roles[1] != "Editor" {
		t.Fatalf("unexpected roles %v", resp.Roles)
	}
}

func TestUserHandler_AssignRole_MissingRole(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	c, _ := newJSONContext(http.MethodPost, "/api/v1/users/u2/roles", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("u2")

	err := h.AssignRole(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if want := "validation failed: role is required"; err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestUserHandler_ListRoles(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h := NewUserHandler(&stubUserService{
		listRolesFn: func(context.Context) ([]*domain.Role, error) {
			return []*domain.Role{{Name: domain.RoleAdmin, CreatedAt: created}, {Name: domain.RoleUser, CreatedAt: created}}, nil
		},
	})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/roles", "")
	if err := h.ListRoles(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listRolesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 2 || resp.Roles[0].Name != domain.RoleAdmin || resp.Roles[0].CreatedAt != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
