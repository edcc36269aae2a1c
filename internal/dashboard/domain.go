package dashboard

import (
	"time"

	"github.com/zamsuite/zamsuite-auth/internal/projects"
)

// Dashboard is the role-segmented statistics payload. All four sections are
// always present; a caller lacking the permissions behind a section receives
// that section's zero value, never a missing key.
type Dashboard struct {
	Admin    AdminSection    `json:"admin"`
	Manager  ManagerSection  `json:"manager"`
	User     UserSection     `json:"user"`
	Customer CustomerSection `json:"customer"`
}

// AdminSection aggregates platform-wide user and role statistics.
type AdminSection struct {
	Summary          Summary           `json:"summary"`
	Activity         []MonthActivity   `json:"activity"`
	RoleDistribution []RoleShare       `json:"role_distribution"`
	RecentUsers      []RecentUser      `json:"recent_users"`
	RoleMatrix       []RoleMatrixEntry `json:"role_matrix"`
}

// Summary holds the admin headline counts and their period-over-period
// changes.
type Summary struct {
	TotalUsers     int64   `json:"total_users"`
	ActiveUsers    int64   `json:"active_users"`
	NewUsers       int64   `json:"new_users"`
	UserGrowth     float64 `json:"user_growth"`
	ActivityChange float64 `json:"activity_change"`
}

// MonthActivity is one calendar-month bucket of the trailing activity series.
type MonthActivity struct {
	Month    string `json:"month"`
	Users    int64  `json:"users"`
	NewUsers int64  `json:"newUsers"`
}

// RoleShare reports how many users hold a role and its share of all users.
type RoleShare struct {
	Name       string  `json:"name"`
	UserCount  int64   `json:"user_count"`
	Percentage float64 `json:"percentage"`
}

// RecentUser is one row of the latest-signups list.
type RecentUser struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoleMatrixEntry describes a role's permissions grouped by category plus
// its most recent members.
type RoleMatrixEntry struct {
	Role              string              `json:"role"`
	PermissionGroups  map[string][]string `json:"permission_groups"`
	CommonPermissions []string            `json:"common_permissions"`
	RecentMembers     []string            `json:"recent_members"`
}

// ManagerSection carries the team list plus cross-service project data.
type ManagerSection struct {
	TeamMembers       []TeamMember        `json:"team_members"`
	ProjectStatistics projects.Statistics `json:"project_statistics"`
	ActiveProjects    []projects.Project  `json:"active_projects"`
}

// TeamMember is one member of the built-in user role.
type TeamMember struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// UserSection carries the synthetic personal task list.
type UserSection struct {
	Tasks []Task `json:"tasks"`
}

// Task is a placeholder work item derived from a permission name. Real task
// tracking lives in project-service.
type Task struct {
	Title    string `json:"title"`
	Project  string `json:"project"`
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// CustomerSection scopes the count logic to holders of the customer role,
// padded with static mock data until the billing and support services land.
type CustomerSection struct {
	TotalCustomers      int64             `json:"total_customers"`
	NewCustomers        int64             `json:"new_customers"`
	CustomerGrowth      float64           `json:"customer_growth"`
	Services            []CustomerService `json:"services"`
	PendingIntegrations int               `json:"pending_integrations"`
	OpenTickets         int               `json:"open_tickets"`
	UnpaidInvoices      int               `json:"unpaid_invoices"`
}

// CustomerService is a mock status row for a downstream service.
type CustomerService struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// EmptyAdminSection returns the documented zero value with every list
// initialised, so encoded JSON carries empty arrays instead of null.
func EmptyAdminSection() AdminSection {
	return AdminSection{
		Activity:         []MonthActivity{},
		RoleDistribution: []RoleShare{},
		RecentUsers:      []RecentUser{},
		RoleMatrix:       []RoleMatrixEntry{},
	}
}

// EmptyManagerSection returns the documented zero value.
func EmptyManagerSection() ManagerSection {
	return ManagerSection{
		TeamMembers: []TeamMember{},
		ProjectStatistics: projects.Statistics{
			ProjectStatus:  map[string]int64{},
			TaskCompletion: map[string]int64{},
		},
		ActiveProjects: []projects.Project{},
	}
}

// EmptyUserSection returns the documented zero value.
func EmptyUserSection() UserSection {
	return UserSection{Tasks: []Task{}}
}

// EmptyCustomerSection returns the documented zero value.
func EmptyCustomerSection() CustomerSection {
	return CustomerSection{Services: []CustomerService{}}
}
