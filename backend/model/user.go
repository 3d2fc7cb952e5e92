package model

import (
	"time"
)

// Role is the fixed set of actor roles
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleIssuer  Role = "issuer"
	RoleBidder  Role = "bidder"
	RoleAuditor Role = "auditor"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleIssuer, RoleBidder, RoleAuditor:
		return true
	default:
		return false
	}
}

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// User represents a registered account
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor returns the actor view of the user
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
