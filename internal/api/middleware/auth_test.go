package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/infrastructure/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newIssuer(t *testing.T) *security.JWTIssuer {
	t.Helper()
	issuer, err := security.NewTokenIssuer(security.TokenConfig{Secret: testSecret, TTL: time.Hour})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func runAuth(t *testing.T, issuer *security.JWTIssuer, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(issuer)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	issuer := newIssuer(t)
	signed, _, err := issuer.Issue(domain.TokenClaims{
		UserID:   "u1",
		Username: "alice",
		Role:     domain.RoleUser,
		Roles:    []string{domain.RoleUser, domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth(issuer)
	handler := mw(func(c echo.Context) error {
		called = true
		if c.Get("user_id") != "u1" {
			t.Fatalf("user_id not set")
		}
		if c.Get("username") != "alice" {
			t.Fatalf("username not set")
		}
		if c.Get("role") != domain.RoleUser {
			t.Fatalf("role not set")
		}
		roles, _ := c.Get("roles").([]string)
		if len(roles) != 2 || roles[1] != domain.RoleAdmin {
			t.Fatalf("roles not set: %v", roles)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	issuer := newIssuer(t)

	other, err := security.NewTokenIssuer(security.TokenConfig{Secret: "ffffffffffffffffffffffffffffffff"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	foreign, _, err := other.Issue(domain.TokenClaims{UserID: "u1", Username: "alice", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	expiredIssuer, err := security.NewTokenIssuer(security.TokenConfig{
		Secret: testSecret,
		TTL:    time.Minute,
		Now:    func() time.Time { return time.Now().Add(-time.Hour) },
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	expired, _, err := expiredIssuer.Issue(domain.TokenClaims{UserID: "u1", Username: "alice", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "u1", "role": domain.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token abc",
		"empty bearer":   "Bearer ",
		"garbage":        "Bearer not-a-token",
		"foreign secret": "Bearer " + foreign,
		"expired":        "Bearer " + expired,
		"alg none":       "Bearer " + unsigned,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, called := runAuth(t, issuer, header)
			if called {
				t.Fatalf("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	issuer := newIssuer(t)
	signed, _, err := issuer.Issue(domain.TokenClaims{UserID: "u9", Username: "root", Role: domain.RoleAdmin, Roles: []string{domain.RoleAdmin}})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	cases := []struct {
		name       string
		header     string
		wantCalled bool
		wantUserID any
	}{
		{"anonymous", "", true, nil},
		{"valid token", "Bearer " + signed, true, "u9"},
		{"invalid token", "Bearer not-a-token", false, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			handler := OptionalAuth(issuer)(func(c echo.Context) error {
				called = true
				if c.Get("user_id") != tc.wantUserID {
					t.Fatalf("unexpected user_id %v", c.Get("user_id"))
				}
				return c.NoContent(http.StatusOK)
			})
			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}

			if called != tc.wantCalled {
				t.Fatalf("called = %v, want %v", called, tc.wantCalled)
			}
			if !tc.wantCalled && rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
