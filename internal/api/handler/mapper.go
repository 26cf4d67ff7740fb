package handler

import (
	"time"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

func toLoginResponse(res *domain.LoginResult, ttl time.Duration) loginResponse {
	resp := loginResponse{
		Token:   res.Token,
		User:    res.User,
		Message: res.Message,
	}
	if res.Succeeded() {
		resp.ExpiresIn = int64(ttl.Seconds())
	}
	return resp
}

func toRoleResponses(roles []*domain.Role) []roleResponse {
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{
			Name:      r.Name,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
