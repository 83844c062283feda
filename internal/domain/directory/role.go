package directory

import "strings"

type Role string

const (
	RoleEmployee Role = "Employee"
	RoleTeamLead Role = "TeamLead"
	RoleManager  Role = "Manager"
	RoleHR       Role = "HR"
	RoleMD       Role = "MD"
	RoleDirector Role = "Director"
)

var allRoles = []Role{RoleEmployee, RoleTeamLead, RoleManager, RoleHR, RoleMD, RoleDirector}

// ApprovalAuthority is what the routing logic asks of a role instead of
// comparing role names.
type ApprovalAuthority interface {
	// IsFinal reports whether every approve or reject by this role closes the chain.
	IsFinal() bool
	// CanFinalize reports whether the role may close the chain on request,
	// act out of turn and adjust unpaid days.
	CanFinalize() bool
	// InterceptsExecutiveRouting reports whether the role may hand a request
	// to an executive. Everyone else is routed through it first.
	InterceptsExecutiveRouting() bool
	// IsExecutive reports whether the role sits at the top of the chain.
	IsExecutive() bool
}

var _ ApprovalAuthority = Role("")

func (r Role) IsFinal() bool {
	return r.IsExecutive()
}

func (r Role) CanFinalize() bool {
	return r == RoleHR || r.IsExecutive()
}

func (r Role) InterceptsExecutiveRouting() bool {
	return r == RoleHR
}

func (r Role) IsExecutive() bool {
	return r == RoleMD || r == RoleDirector
}

func (r Role) Valid() bool {
	for _, candidate := range allRoles {
		if r == candidate {
			return true
		}
	}
	return false
}

// ParseRole accepts role names case-insensitively.
func ParseRole(value string) (Role, bool) {
	value = strings.TrimSpace(value)
	for _, candidate := range allRoles {
		if strings.EqualFold(value, string(candidate)) {
			return candidate, true
		}
	}
	return "", false
}
