package handler

import "github.com/apiecommerce/identity-service/internal/core/domain"

// registerRequest is the body of POST /api/v1/users.
// Blank usernames and passwords are rejected by the service as well; the tags
// bound the sizes the service would otherwise accept.
type registerRequest struct {
	Username    string `json:"username"     validate:"required,max=64"`
	Password    string `json:"password"     validate:"required,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=128"`
	Role        string `json:"role"         validate:"omitempty,max=64"`
}

// loginRequest is the body of POST /api/v1/users/login. Fields are not
// validated here: missing values produce a typed LoginResult.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// assignRoleRequest is the body of POST /api/v1/users/:id/roles.
type assignRoleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

type loginResponse struct {
	Token     string             `json:"token,omitempty"`
	ExpiresIn int64              `json:"expires_in,omitempty"`
	User      *domain.PublicUser `json:"user,omitempty"`
	Message   string             `json:"message"`
}

type listUsersResponse struct {
	Users []*domain.PublicUser `json:"users"`
	Total int                  `json:"total"`
}

type roleResponse struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type listRolesResponse struct {
	Roles []roleResponse `json:"roles"`
	Total int            `json:"total"`
}
