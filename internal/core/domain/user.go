package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User models a registered identity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the outward-facing projection of a User.
type PublicUser struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

// Public strips credential material from the user.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return &PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       roles,
	}
}

// PrimaryRole returns the first assigned role, or "" when the user has none.
func (u *User) PrimaryRole() string {
	if u == nil || len(u.Roles) == 0 {
		return ""
	}
	return u.Roles[0]
}

// HasRole reports whether name is among the user's roles. Role names are case-sensitive.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// NormalizeUsername returns the canonical form used for uniqueness checks.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
