package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

// ctxClaims rebuilds the identity injected by the Auth middleware. A missing
// user id means the middleware did not run and the request is rejected.
func ctxClaims(c echo.Context) (*domain.TokenClaims, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	claims := &domain.TokenClaims{UserID: userID}
	claims.Username, _ = c.Get("username").(string)
	claims.Role, _ = c.Get("role").(string)
	claims.Roles, _ = c.Get("roles").([]string)
	return claims, nil
}

// hasRole checks the primary role and the full role set.
func hasRole(claims *domain.TokenClaims, role string) bool {
	if claims.Role == role {
		return true
	}
	for _, r := range claims.Roles {
		if r == role {
			return true
		}
	}
	return false
}
