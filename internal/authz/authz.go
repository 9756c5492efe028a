// Package authz implements the role and permission model gating the admin
// surface. Checks are pure functions of the user record: no network calls and
// no cached state, so gating is always consistent with the last-loaded user.
package authz

import (
	"sort"

	"stockdesk/gateway/internal/models"
)

// HasPermission reports whether the user holds the given permission, either
// through their role's static set or their explicit override list. An absent
// user holds nothing; the admin role holds everything.
func HasPermission(u *models.User, perm string) bool {
	if u == nil {
		return false
	}
	if u.Role == models.RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[u.Role] {
		if p == perm {
			return true
		}
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAny reports whether the user holds at least one of the permissions.
func HasAny(u *models.User, perms ...string) bool {
	for _, p := range perms {
		if HasPermission(u, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the user holds every one of the permissions.
func HasAll(u *models.User, perms ...string) bool {
	for _, p := range perms {
		if !HasPermission(u, p) {
			return false
		}
	}
	return u != nil
}

// EffectivePermissions returns the union of the role's static set and the
// user's override list, deduplicated and sorted. Nil for an absent user.
func EffectivePermissions(u *models.User) []string {
	if u == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, p := range PermissionsForRole(u.Role) {
		seen[p] = struct{}{}
	}
	for _, p := range u.Permissions {
		seen[p] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}
