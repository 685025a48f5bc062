package types

import (
	"fmt"
	"time"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// Roles lists every role a user may hold.
var Roles = []string{
	RoleUser,
	RoleAdmin,
	"Developer",
	"Designer",
	"Tester",
	"Project Manager",
	"DevOps",
	"Analyst",
	"Writer",
	"Manager",
	"Consultant",
}

// IsValidRole reports whether role is one of Roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the user's login. It is stored lowercased and is unique.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Age is the user's age in years.
	Age int `json:"age" db:"age"`

	// Role is one of Roles.
	Role string `json:"role" db:"role"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// FullInfo returns a one-line description of the user.
func (u User) FullInfo() string {
	return fmt.Sprintf("%s (%s) - %s", u.Name, u.Email, u.Role)
}

// AgeGroup buckets the user's age.
func (u User) AgeGroup() string {
	switch {
	case u.Age < 18:
		return "Minor"
	case u.Age < 30:
		return "Young Adult"
	case u.Age < 50:
		return "Adult"
	default:
		return "Senior"
	}
}

// Profile returns the public representation of the user keyed by API field
// name. The password hash is never part of it.
func (u User) Profile() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"age":       u.Age,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
		"ageGroup":  u.AgeGroup(),
		"fullInfo":  u.FullInfo(),
	}
}

// UserFields carries user attributes decoded from a request body.
// A nil field was not supplied by the caller.
type UserFields struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Age      *int    `json:"age"`
	Role     *string `json:"role"`
}

// Empty reports whether no field was supplied.
func (f UserFields) Empty() bool {
	return f.Name == nil && f.Email == nil && f.Password == nil && f.Age == nil && f.Role == nil
}
