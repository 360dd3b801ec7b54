package models

import "time"

// UserRole identifies which user collection an account belongs to.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleOrganizer UserRole = "ORGANIZER"
	RoleStudent   UserRole = "STUDENT"
)

// Valid reports whether the role is one of the known collections.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleStudent:
		return true
	}
	return false
}

// CanModerate reports whether the role may act on participation requests.
func (r UserRole) CanModerate() bool {
	return r == RoleAdmin || r == RoleOrganizer
}

// User represents an account from one of the role collections. The same
// numeric structure backs admins, organizers and students; Role records which
// table the row was loaded from.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Picture      string    `db:"picture" json:"picture"`
	Role         UserRole  `db:"-" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Actor is the (id, role) pair bound to the current request. Every workflow
// call receives it explicitly instead of reading ambient session state.
type Actor struct {
	ID   string
	Role UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
