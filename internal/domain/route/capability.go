package route

import (
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
)

// Capability is the access rule a route declares it requires.
type Capability string

const (
	CapabilityGuest            Capability = "guest"              // Only logged-out visitors
	CapabilityAuthenticated    Capability = "authenticated"      // Any logged-in user
	CapabilityAdmin            Capability = "admin"              // Sub and super admins
	CapabilityLeader           Capability = "leader"             // Team leaders
	CapabilityEmployeeOrLeader Capability = "employee_or_leader" // Tracked roles
	CapabilityAdminOrLeader    Capability = "admin_or_leader"    // Observer roles
)

// AllCapabilities returns every capability a route may declare.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityGuest,
		CapabilityAuthenticated,
		CapabilityAdmin,
		CapabilityLeader,
		CapabilityEmployeeOrLeader,
		CapabilityAdminOrLeader,
	}
}

// CapabilityRoles maps role-gated capabilities to the roles they admit.
// Guest and Authenticated depend only on the authentication flag and are
// therefore absent.
var CapabilityRoles = map[Capability][]user.Role{
	CapabilityAdmin: {
		user.RoleSubAdmin,
		user.RoleSuperAdmin,
	},
	CapabilityLeader: {
		user.RoleLeader,
	},
	CapabilityEmployeeOrLeader: {
		user.RoleEmployee,
		user.RoleLeader,
	},
	CapabilityAdminOrLeader: {
		user.RoleSubAdmin,
		user.RoleSuperAdmin,
		user.RoleLeader,
	},
}

// Allows checks if a role is admitted by a role-gated capability
func Allows(c Capability, role user.Role) bool {
	if !role.Known() {
		return false
	}

	roles, exists := CapabilityRoles[c]
	if !exists {
		return false
	}

	for _, r := range roles {
		if r == role {
			return true
		}
	}

	return false
}

// Composition lists what a capability's renderer wraps around the page.
type Composition struct {
	Shell         bool `json:"shell"`
	TrackingAgent bool `json:"tracking_agent"`
}

// Compose returns the fixed composition rule for c: shell for every
// role-gated capability, plus the tracking agent for the tracked ones.
func Compose(c Capability) Composition {
	switch c {
	case CapabilityAdmin, CapabilityAdminOrLeader:
		return Composition{Shell: true}
	case CapabilityLeader, CapabilityEmployeeOrLeader:
		return Composition{Shell: true, TrackingAgent: true}
	default:
		return Composition{}
	}
}
