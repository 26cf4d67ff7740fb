package domain

import "time"

// Role is a named authorization group.
type Role struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
