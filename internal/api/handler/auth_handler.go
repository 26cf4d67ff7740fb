package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/api/metrics"
	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	tokenTTL    time.Duration
	openRoles   bool
}

// NewAuthHandler builds the handler; tokenTTL is reported to clients as
// expires_in on a successful login. Unless openRoles is set, only an
// authenticated Admin may register a user with a role other than the default.
func NewAuthHandler(authService ports.AuthService, tokenTTL time.Duration, openRoles bool) *AuthHandler {
	return &AuthHandler{authService: authService, tokenTTL: tokenTTL, openRoles: openRoles}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.PublicUser
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/users [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return err
	}
	if !h.mayRequestRole(c, req.Role) {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultForbidden).Inc()
		return fmt.Errorf("%w: only an admin may register a user with role %q", domain.ErrForbidden, strings.TrimSpace(req.Role))
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, req.DisplayName, req.Role)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultCreated).Inc()
	return c.JSON(http.StatusCreated, user)
}

// Login authenticates a user and returns a bearer token.
//
// Authentication failures are not errors: the body always carries a message
// and the token is present only on success.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  loginResponse
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/users/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.LoginDuration.Observe(time.Since(start).Seconds()) }()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}

	if !res.Succeeded() {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return c.JSON(http.StatusUnauthorized, toLoginResponse(res, h.tokenTTL))
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusOK, toLoginResponse(res, h.tokenTTL))
}

func (h *AuthHandler) mayRequestRole(c echo.Context, role string) bool {
	role = strings.TrimSpace(role)
	if h.openRoles || role == "" || role == domain.RoleUser {
		return true
	}
	claims, err := ctxClaims(c)
	return err == nil && hasRole(claims, domain.RoleAdmin)
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return metrics.ResultDuplicate
	case errors.Is(err, domain.ErrValidation):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
