package route

import (
	"strings"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
)

// Screen is a navigable page and the capability guarding it. An empty
// Capability marks a public screen that always renders.
type Screen struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Capability Capability `json:"capability,omitempty"`
}

func (s Screen) Public() bool {
	return s.Capability == ""
}

// Evaluate applies the screen's guard to sess.
func (s Screen) Evaluate(sess session.Session, requested string, paths Paths) Decision {
	if s.Public() {
		return Decision{Kind: Render}
	}
	return Evaluate(s.Capability, sess, requested, paths)
}

// Screens is the portal's route table
type Screens []Screen

// Lookup finds the screen registered for path, ignoring a trailing slash
// and any query string.
func (s Screens) Lookup(path string) (Screen, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	for _, sc := range s {
		if sc.Path == path {
			return sc, true
		}
	}
	return Screen{}, false
}

// DefaultScreens returns the portal's screens for the given destinations.
func DefaultScreens(p Paths) Screens {
	return Screens{
		{Name: "login", Path: p.Landing, Capability: CapabilityGuest},
		{Name: "home", Path: p.Home, Capability: CapabilityAuthenticated},
		{Name: "profile", Path: "/profile", Capability: CapabilityAuthenticated},
		{Name: "admin-dashboard", Path: "/admin/dashboard", Capability: CapabilityAdmin},
		{Name: "admin-employees", Path: "/admin/employees", Capability: CapabilityAdmin},
		{Name: "admin-attendance", Path: "/admin/attendance", Capability: CapabilityAdmin},
		{Name: "leader-dashboard", Path: p.LeaderDashboard, Capability: CapabilityLeader},
		{Name: "leader-team", Path: "/leader/team", Capability: CapabilityLeader},
		{Name: "employee-dashboard", Path: p.EmployeeDashboard, Capability: CapabilityEmployeeOrLeader},
		{Name: "attendance", Path: "/attendance", Capability: CapabilityEmployeeOrLeader},
		{Name: "live-locations", Path: "/locations", Capability: CapabilityAdminOrLeader},
		{Name: "about", Path: "/about"},
	}
}
