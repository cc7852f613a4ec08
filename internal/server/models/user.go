// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID        string
	Email     string
	PassHash  []byte `json:"-"`
	Role      Role
	Name      string
	Address   string
	CreatedAt time.Time
}
