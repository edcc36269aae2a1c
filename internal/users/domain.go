package users

import "time"

// User represents a user account for management.
type User struct {
	ID              int64
	Name            string
	Email           string
	PasswordHash    string
	Language        string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// RoleIDs and DirectPermissionIDs are populated on detail loads.
	RoleIDs             []int64
	DirectPermissionIDs []int64
}
