package roles

import "time"

// Role represents a named permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// PermissionIDs is populated on detail loads and left nil on listings.
	PermissionIDs []int64
}

// Stat is one row of the role distribution report.
type Stat struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	UserCount  int64   `json:"user_count"`
	Percentage float64 `json:"percentage"`
}
