package models

// Role catalog. Codes match the identity directory this system was migrated
// from; they appear in stored records and must not be renumbered.
const (
	RoleCodeSuperAdmin = 1
	RoleCodeAdmin      = 2
	RoleCodeEmployee   = 3
	RoleCodeCustomer   = 4
)

const (
	RoleSuperAdmin = "Super_Admin"
	RoleAdmin      = "Admin"
	RoleEmployee   = "Employee"
	RoleCustomer   = "Customer"
)

// Status catalog for the stored status flag. Distinct from derived activity,
// which is computed from login recency and never written back.
const (
	StatusCodeActive    = 1
	StatusCodeInactive  = 2
	StatusCodeSuspended = 3
	StatusCodePending   = 4
)

const (
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
	StatusSuspended = "Suspended"
	StatusPending   = "Pending"
)

var roleNamesByCode = map[int]string{
	RoleCodeSuperAdmin: RoleSuperAdmin,
	RoleCodeAdmin:      RoleAdmin,
	RoleCodeEmployee:   RoleEmployee,
	RoleCodeCustomer:   RoleCustomer,
}

var roleCodesByName = map[string]int{
	RoleSuperAdmin: RoleCodeSuperAdmin,
	RoleAdmin:      RoleCodeAdmin,
	RoleEmployee:   RoleCodeEmployee,
	RoleCustomer:   RoleCodeCustomer,
}

var statusNamesByCode = map[int]string{
	StatusCodeActive:    StatusActive,
	StatusCodeInactive:  StatusInactive,
	StatusCodeSuspended: StatusSuspended,
	StatusCodePending:   StatusPending,
}

var statusCodesByName = map[string]int{
	StatusActive:    StatusCodeActive,
	StatusInactive:  StatusCodeInactive,
	StatusSuspended: StatusCodeSuspended,
	StatusPending:   StatusCodePending,
}

// RoleNameByCode resolves a role code to its display name.
func RoleNameByCode(code int) (string, bool) {
	name, ok := roleNamesByCode[code]
	return name, ok
}

// RoleCodeByName resolves a role display name to its code.
func RoleCodeByName(name string) (int, bool) {
	code, ok := roleCodesByName[name]
	return code, ok
}

// StatusNameByCode resolves a status code to its display name.
func StatusNameByCode(code int) (string, bool) {
	name, ok := statusNamesByCode[code]
	return name, ok
}

// StatusCodeByName resolves a status display name to its code.
func StatusCodeByName(name string) (int, bool) {
	code, ok := statusCodesByName[name]
	return code, ok
}

// RoleHasFinancialVisibility reports whether a role may see summed balances.
func RoleHasFinancialVisibility(roleCode int) bool {
	return roleCode == RoleCodeSuperAdmin || roleCode == RoleCodeAdmin
}

// RoleIsAdminTier reports whether a role belongs to the administrative tier.
func RoleIsAdminTier(roleCode int) bool {
	return roleCode == RoleCodeSuperAdmin || roleCode == RoleCodeAdmin
}

// AllRoleCodes returns the role codes in catalog order.
func AllRoleCodes() []int {
	return []int{RoleCodeSuperAdmin, RoleCodeAdmin, RoleCodeEmployee, RoleCodeCustomer}
}

// AllStatusCodes returns the status codes in catalog order.
func AllStatusCodes() []int {
	return []int{StatusCodeActive, StatusCodeInactive, StatusCodeSuspended, StatusCodePending}
}
