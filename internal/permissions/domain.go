package permissions

import (
	"strings"
	"time"
)

// Permission represents an atomic capability. Category is a stored field set
// at creation time; it is no longer derived from the name on every read.
type Permission struct {
	ID          int64
	Name        string
	Description string
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DefaultCategory derives a category from a conventional <verb>_<subject>
// permission name, used only when the caller omits an explicit category at
// creation time. "view_users" defaults to "users"; a name without an
// underscore falls back to itself.
func DefaultCategory(name string) string {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return name
}
