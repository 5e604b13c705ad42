package account

import (
	"errors"
	"time"
)

// Roles recognized by the service.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

var (
	// ErrNotFound means no account matches the identifier.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateID means the ID number is already taken.
	ErrDuplicateID = errors.New("id number already exists")
	// ErrInvalidCredentials covers both unknown ID and wrong password.
	ErrInvalidCredentials = errors.New("invalid id or password")
)

// Account represents a student, instructor or admin identity. IDNumber is the
// institution-issued identifier students type at login and instructors use on
// rosters; it is unique across all roles.
type Account struct {
	ID           string    `json:"id"`
	IDNumber     string    `json:"idNumber"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
