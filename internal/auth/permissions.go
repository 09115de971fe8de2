package auth

const (
	RolePayrollAdmin  = "payroll_admin"
	RolePayrollViewer = "payroll_viewer"
)

const (
	PermPayrollRead     = "payroll.read"
	PermPayrollRun      = "payroll.run"
	PermPayrollApprove  = "payroll.approve"
	PermPayrollFinalize = "payroll.finalize"
	PermSettingsWrite   = "payroll.settings.write"
	PermAuditRead       = "audit.read"
)

// DefaultPermissions is every permission; the admin role holds all of them.
var DefaultPermissions = []string{
	PermPayrollRead,
	PermPayrollRun,
	PermPayrollApprove,
	PermPayrollFinalize,
	PermSettingsWrite,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RolePayrollViewer: {
		PermPayrollRead,
	},
	RolePayrollAdmin: DefaultPermissions,
}

func HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}
