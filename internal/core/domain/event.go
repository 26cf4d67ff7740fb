package domain

import "time"

type AuthEventType string

const (
	EventUserRegistered   AuthEventType = "user.registered"
	EventUserLoggedIn     AuthEventType = "user.logged_in"
	EventUserRoleAssigned AuthEventType = "user.role_assigned"
)

// AuthEvent describes a change in an identity's lifecycle.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	UserID     string        `json:"user_id"`
	Username   string        `json:"username"`
	Role       string        `json:"role,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
