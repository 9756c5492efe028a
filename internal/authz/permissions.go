package authz

import (
	"sort"

	"stockdesk/gateway/internal/models"
)

// Permission keys gating the admin surface.
const (
	PermProductsView    = "products.view"
	PermProductsEdit    = "products.edit"
	PermProductsDelete  = "products.delete"
	PermInvoicesView    = "invoices.view"
	PermInvoicesEdit    = "invoices.edit"
	PermInvoicesDelete  = "invoices.delete"
	PermWarehousesView  = "warehouses.view"
	PermWarehousesEdit  = "warehouses.edit"
	PermVouchersView    = "vouchers.view"
	PermVouchersEdit    = "vouchers.edit"
	PermUsersView       = "users.view"
	PermUsersEdit       = "users.edit"
	PermUsersDelete     = "users.delete"
	PermAuditView       = "audit.view"
	PermReportsView     = "reports.view"
	PermSettingsEdit    = "settings.edit"
)

// catalogue is the closed set of known permissions with their descriptions.
// Every key referenced by a role or a route guard must exist here.
var catalogue = map[string]string{
	PermProductsView:   "view products",
	PermProductsEdit:   "create and edit products",
	PermProductsDelete: "delete products",
	PermInvoicesView:   "view invoices",
	PermInvoicesEdit:   "create and edit invoices",
	PermInvoicesDelete: "delete invoices",
	PermWarehousesView: "view warehouses",
	PermWarehousesEdit: "manage warehouses",
	PermVouchersView:   "view vouchers",
	PermVouchersEdit:   "manage vouchers",
	PermUsersView:      "view user accounts",
	PermUsersEdit:      "manage user accounts",
	PermUsersDelete:    "delete user accounts",
	PermAuditView:      "view the audit log",
	PermReportsView:    "view reports and dashboards",
	PermSettingsEdit:   "change system settings",
}

// rolePermissions maps each non-admin role to its granted permissions.
// This is the single source of truth for the authorisation model. The admin
// role is intentionally absent: it holds the full catalogue, computed, so it
// tracks additions without edits here.
var rolePermissions = map[models.Role][]string{
	models.RoleManager: {
		PermProductsView,
		PermProductsEdit,
		PermProductsDelete,
		PermInvoicesView,
		PermInvoicesEdit,
		PermInvoicesDelete,
		PermWarehousesView,
		PermWarehousesEdit,
		PermVouchersView,
		PermVouchersEdit,
		PermUsersView,
		PermAuditView,
		PermReportsView,
	},
	models.RoleSales: {
		PermProductsView,
		PermInvoicesView,
		PermInvoicesEdit,
		PermVouchersView,
		PermReportsView,
	},
	models.RoleViewer: {
		PermProductsView,
		PermInvoicesView,
		PermWarehousesView,
		PermVouchersView,
		PermReportsView,
	},
}

// All returns every known permission key, sorted.
func All() []string {
	keys := make([]string, 0, len(catalogue))
	for k := range catalogue {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Known reports whether p exists in the catalogue.
func Known(p string) bool {
	_, ok := catalogue[p]
	return ok
}

// Describe returns the human-readable description for a permission key.
func Describe(p string) string {
	return catalogue[p]
}

// PermissionsForRole returns all permissions granted to a role, sorted.
// The admin role receives the full catalogue. Returns nil for unknown roles.
func PermissionsForRole(role models.Role) []string {
	if role == models.RoleAdmin {
		return All()
	}
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	result := make([]string, len(perms))
	copy(result, perms)
	sort.Strings(result)
	return result
}
