package route

import (
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
)

type DecisionKind int

const (
	Render DecisionKind = iota
	Redirect
)

func (k DecisionKind) String() string {
	if k == Render {
		return "render"
	}
	return "redirect"
}

// Decision is the single outcome of evaluating a guard.
type Decision struct {
	Kind DecisionKind
	// Target is the redirect destination; empty for Render.
	Target string
	// From carries the originally requested location on non-guest denials.
	From        string
	Composition Composition
}

func (d Decision) Allowed() bool {
	return d.Kind == Render
}

// Paths holds the redirect destinations.
type Paths struct {
	Landing           string
	Home              string
	EmployeeDashboard string
	LeaderDashboard   string
}

// DefaultPaths returns the portal's standard destinations.
func DefaultPaths() Paths {
	return Paths{
		Landing:           "/",
		Home:              "/home",
		EmployeeDashboard: "/employee/dashboard",
		LeaderDashboard:   "/leader/dashboard",
	}
}

// GuestHome resolves where an authenticated user lands when hitting a
// guest-only route.
func (p Paths) GuestHome(role user.Role) string {
	switch role {
	case user.RoleEmployee:
		return p.EmployeeDashboard
	case user.RoleLeader:
		return p.LeaderDashboard
	default:
		return p.Home
	}
}

// Evaluate decides whether the requested location may render for sess.
// It is pure and returns exactly one decision for every input.
func Evaluate(c Capability, sess session.Session, requested string, paths Paths) Decision {
	authenticated := sess.IsAuthenticated && sess.User != nil

	var allowed bool
	switch c {
	case CapabilityGuest:
		if authenticated {
			return Decision{Kind: Redirect, Target: paths.GuestHome(sess.Role())}
		}
		return Decision{Kind: Render, Composition: Compose(c)}
	case CapabilityAuthenticated:
		allowed = authenticated
	default:
		allowed = authenticated && Allows(c, sess.Role())
	}

	if !allowed {
		return Decision{Kind: Redirect, Target: paths.Landing, From: requested}
	}
	return Decision{Kind: Render, Composition: Compose(c)}
}
