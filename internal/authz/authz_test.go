package authz

import (
	"testing"

	"stockdesk/gateway/internal/models"
)

func TestCatalogueIntegrity(t *testing.T) {
	// Every permission referenced by a role must exist in the catalogue.
	for role, perms := range rolePermissions {
		for _, p := range perms {
			if !Known(p) {
				t.Errorf("role %q references unknown permission %q", role, p)
			}
		}
	}

	for _, p := range All() {
		if Describe(p) == "" {
			t.Errorf("permission %q has no description", p)
		}
	}
}

func TestAdminHoldsFullCatalogue(t *testing.T) {
	admin := &models.User{ID: "u1", Username: "root", Role: models.RoleAdmin}

	for _, p := range All() {
		if !HasPermission(admin, p) {
			t.Errorf("admin denied %q", p)
		}
	}

	// Admin skips the table entirely, so holds keys no static list mentions.
	if got := PermissionsForRole(models.RoleAdmin); len(got) != len(All()) {
		t.Errorf("admin role set has %d keys, want full catalogue %d", len(got), len(All()))
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		perm string
		want bool
	}{
		{"nil user", nil, PermProductsView, false},
		{
			"role grant",
			&models.User{Role: models.RoleSales},
			PermInvoicesEdit,
			true,
		},
		{
			"missing from role",
			&models.User{Role: models.RoleSales},
			PermUsersDelete,
			false,
		},
		{
			"override grant",
			&models.User{Role: models.RoleViewer, Permissions: []string{PermSettingsEdit}},
			PermSettingsEdit,
			true,
		},
		{
			"unknown role",
			&models.User{Role: models.Role("ghost")},
			PermProductsView,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.user, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%q) = %v, want %v", tt.perm, got, tt.want)
			}
		})
	}
}

func TestHasAnyHasAll(t *testing.T) {
	manager := &models.User{Role: models.RoleManager}

	if !HasAny(manager, PermUsersDelete, PermProductsView) {
		t.Error("HasAny should hit on the second key")
	}
	if HasAny(manager, PermUsersDelete, PermSettingsEdit) {
		t.Error("HasAny should miss when no key is held")
	}
	if !HasAll(manager, PermProductsView, PermInvoicesView) {
		t.Error("HasAll should pass when every key is held")
	}
	if HasAll(manager, PermProductsView, PermUsersDelete) {
		t.Error("HasAll should fail on one missing key")
	}
	if HasAll(nil, PermProductsView) || HasAll(nil) {
		t.Error("nil user must never pass HasAll")
	}
}

func TestEffectivePermissionsUnion(t *testing.T) {
	u := &models.User{
		Role:        models.RoleSales,
		Permissions: []string{PermUsersDelete, PermProductsView}, // one overlap
	}

	got := EffectivePermissions(u)
	want := len(PermissionsForRole(models.RoleSales)) + 1
	if len(got) != want {
		t.Errorf("effective set has %d keys, want %d (deduplicated union)", len(got), want)
	}

	if EffectivePermissions(nil) != nil {
		t.Error("nil user should have nil effective set")
	}
}

func TestPermissionsForRoleDefensiveCopy(t *testing.T) {
	perms := PermissionsForRole(models.RoleViewer)
	if len(perms) == 0 {
		t.Fatal("viewer role should have permissions")
	}
	perms[0] = "tampered"

	again := PermissionsForRole(models.RoleViewer)
	for _, p := range again {
		if p == "tampered" {
			t.Fatal("PermissionsForRole leaked its backing array")
		}
	}
}
