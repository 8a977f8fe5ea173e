package session

import (
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
)

// Session is the current authenticated identity. IsAuthenticated is true
// exactly when User is non-nil; build values with Anonymous or Authenticated.
type Session struct {
	IsAuthenticated bool
	User            *user.User
}

// Anonymous returns the logged-out session.
func Anonymous() Session {
	return Session{}
}

// Authenticated returns a session for u. A nil user yields Anonymous.
func Authenticated(u *user.User) Session {
	if u == nil {
		return Anonymous()
	}
	cp := *u
	return Session{IsAuthenticated: true, User: &cp}
}

// Valid reports whether the authentication flag agrees with the user.
func (s Session) Valid() bool {
	return s.IsAuthenticated == (s.User != nil)
}

// Role returns the user's role, or RoleUnknown when logged out.
func (s Session) Role() user.Role {
	if s.User == nil {
		return user.RoleUnknown
	}
	return s.User.Type
}

// UserID returns the user's identity, or "" when logged out.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
