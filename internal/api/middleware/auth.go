package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/core/ports"
)

// Auth validates the bearer token and injects its claims into the context
// under user_id, username, role and roles.
func Auth(tokens ports.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if err := authenticate(c, tokens); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuth injects claims when a bearer token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth(tokens ports.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			if err := authenticate(c, tokens); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens ports.TokenIssuer) error {
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
	c.Set("roles", claims.Roles)
	return nil
}
