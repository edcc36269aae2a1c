package shared

// Built-in role names.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleCustomer = "customer"
)

// Core platform permissions. These ship with the seed data and cannot be
// deleted through the API.
const (
	PermViewUsers   = "view_users"
	PermCreateUsers = "create_users"
	PermEditUsers   = "edit_users"
	PermDeleteUsers = "delete_users"

	PermViewRoles   = "view_roles"
	PermCreateRoles = "create_roles"
	PermEditRoles   = "edit_roles"
	PermDeleteRoles = "delete_roles"

	PermViewPermissions   = "view_permissions"
	PermCreatePermissions = "create_permissions"
	PermEditPermissions   = "edit_permissions"
	PermDeletePermissions = "delete_permissions"

	PermViewServices   = "view_services"
	PermManageServices = "manage_services"

	PermViewDashboard = "view_dashboard"

	PermAssignRoles       = "assign_roles"
	PermAssignPermissions = "assign_permissions"
)

// CorePermissions lists every protected permission name. Membership in this
// list is what blocks deletion, not a stored flag.
func CorePermissions() []string {
	return []string{
		PermViewUsers,
		PermCreateUsers,
		PermEditUsers,
		PermDeleteUsers,
		PermViewRoles,
		PermCreateRoles,
		PermEditRoles,
		PermDeleteRoles,
		PermViewPermissions,
		PermCreatePermissions,
		PermEditPermissions,
		PermDeletePermissions,
		PermViewServices,
		PermManageServices,
		PermViewDashboard,
		PermAssignRoles,
		PermAssignPermissions,
	}
}

// IsCorePermission reports whether name belongs to the protected set.
func IsCorePermission(name string) bool {
	for _, p := range CorePermissions() {
		if p == name {
			return true
		}
	}
	return false
}
