package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestViewerCannotWrite(t *testing.T) {
	if !HasPermission(RolePayrollViewer, PermPayrollRead) {
		t.Fatal("viewer should read")
	}
	for _, perm := range []string{PermPayrollRun, PermPayrollApprove, PermPayrollFinalize, PermSettingsWrite, PermAuditRead} {
		if HasPermission(RolePayrollViewer, perm) {
			t.Fatalf("viewer should not have %s", perm)
		}
	}
	if HasPermission("unknown", PermPayrollRead) {
		t.Fatal("unknown role should have no permissions")
	}
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	for _, perm := range DefaultPermissions {
		if !HasPermission(RolePayrollAdmin, perm) {
			t.Fatalf("admin should have %s", perm)
		}
	}
}
