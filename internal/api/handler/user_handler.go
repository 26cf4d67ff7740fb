package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apiecommerce/identity-service/internal/api/metrics"
	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List returns every registered user.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listUsersResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	if _, err := ctxClaims(c); err != nil {
		return err
	}

	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.PublicUser{}
	}
	return c.JSON(http.StatusOK, listUsersResponse{Users: users, Total: len(users)})
}

// Get returns one user. Callers without the Admin role may only read their
// own record.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.PublicUser
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if id != claims.UserID && !hasRole(claims, domain.RoleAdmin) {
		return fmt.Errorf("%w: cannot read another user", domain.ErrForbidden)
	}

	user, err := h.userService.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// AssignRole grants a role to a user, creating the role when it is new.
//
// @Summary      Assign a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      assignRoleRequest  true  "Role to assign"
// @Success      200   {object}  domain.PublicUser
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/users/{id}/roles [post]
func (h *UserHandler) AssignRole(c echo.Context) error {
	var req assignRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.AssignRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return err
	}

	metrics.RoleAssignmentsTotal.Inc()
	return c.JSON(http.StatusOK, user)
}

// ListRoles returns every known role.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listRolesResponse
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/roles [get]
func (h *UserHandler) ListRoles(c echo.Context) error {
	roles, err := h.userService.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	out := toRoleResponses(roles)
	return c.JSON(http.StatusOK, listRolesResponse{Roles: out, Total: len(out)})
}
