package domain

import (
	"strings"
	"time"
)

// Role is the closed set of roles an identity can hold
type Role string

const (
	RoleUser  Role = "user"
	RoleHR    Role = "hr"
	RoleAdmin Role = "admin"
)

// Roles lists every known role
var Roles = []Role{RoleUser, RoleHR, RoleAdmin}

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleHR:
		return RoleHR, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// Status represents the account status
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus converts a raw string into a Status
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, true
	case StatusInactive:
		return StatusInactive, true
	case StatusSuspended:
		return StatusSuspended, true
	}
	return "", false
}

// Address is the optional postal address of a user
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// User is an identity held by the credential store
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	Address      Address    `json:"address"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate carries the user-editable profile fields.
// Nil pointers leave the stored value untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Address     *Address
}

// Apply copies the set fields onto u
func (p ProfileUpdate) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = strings.TrimSpace(*p.PhoneNumber)
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

// UserFilter narrows a user listing
type UserFilter struct {
	Role   Role
	Status Status
	Search string
	Limit  int
	Offset int
}

// Stats is the aggregate view shown on the admin dashboard
type Stats struct {
	TotalUsers          int `json:"totalUsers"`
	ActiveUsers         int `json:"activeUsers"`
	HRUsers             int `json:"hrUsers"`
	AdminUsers          int `json:"adminUsers"`
	RecentRegistrations int `json:"recentRegistrations"`
}
