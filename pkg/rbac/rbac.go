package rbac

// Platform roles. A request principal carries exactly one.
const (
	RoleAdmin             = "admin"
	RoleBusiness          = "business"
	RoleResponsiblePerson = "responsible_person"
	RoleStudent           = "student"
	RoleLecturer          = "lecturer"
)

// Permissions gating the lifecycle operations. Data-dependent checks
// (group leadership, project ownership) live in the orchestrator; this
// map only covers what a role may attempt at all.
const (
	PermissionCreatePhase    = "phase:create"
	PermissionChangePhase    = "phase:status"
	PermissionDeletePhase    = "phase:delete"
	PermissionCreateCategory = "category:create"
	PermissionChangeCategory = "category:status"
	PermissionCreateCost     = "cost:create"
	PermissionUpdateCost     = "cost:update"
	PermissionTransferCost   = "cost:transfer"
	PermissionReceiveCost    = "cost:receive"
	PermissionCreateEvidence = "evidence:create"
	PermissionRegisterPitch  = "pitching:register"
	PermissionSelectPitch    = "pitching:select"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermissionCreatePhase,
		PermissionChangePhase,
		PermissionDeletePhase,
		PermissionCreateCategory,
		PermissionChangeCategory,
		PermissionCreateCost,
		PermissionUpdateCost,
		PermissionTransferCost,
		PermissionReceiveCost,
		PermissionCreateEvidence,
		PermissionSelectPitch,
	},
	RoleBusiness: {
		PermissionChangePhase,
		PermissionTransferCost,
		PermissionSelectPitch,
	},
	RoleResponsiblePerson: {
		PermissionChangePhase,
		PermissionTransferCost,
	},
	RoleStudent: {
		PermissionCreatePhase,
		PermissionChangePhase,
		PermissionDeletePhase,
		PermissionCreateCategory,
		PermissionChangeCategory,
		PermissionCreateCost,
		PermissionUpdateCost,
		PermissionReceiveCost,
		PermissionCreateEvidence,
		PermissionRegisterPitch,
	},
	RoleLecturer: {},
}

// HasPermission reports whether the role may attempt the operation.
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns a typed error when the role is not allowed.
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{Role: role, Permission: permission}
	}
	return nil
}

// PermissionDeniedError marks a role-level refusal.
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
