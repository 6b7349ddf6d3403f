package models

import (
	"slices"
	"time"
)

type Role string

// Closed set of roles. Do not construct Role from user input without ParseRole
const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

var roles = []Role{RoleCustomer, RoleManager, RoleAdmin}

// ParseRole returns the role and true if value names one of the known roles
func ParseRole(value string) (Role, bool) {
	r := Role(value)
	return r, slices.Contains(roles, r)
}

type User struct {
	ID           int64
	CreatedAt    time.Time
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
}
