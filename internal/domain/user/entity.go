package user

import (
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleEmployee   Role = "employee"    // Regular employee, tracked while checked in
	RoleLeader     Role = "leader"      // Team leader, tracked and can observe the team
	RoleSubAdmin   Role = "sub_admin"   // Delegated administrator
	RoleSuperAdmin Role = "super_admin" // Full access
	RoleUnknown    Role = ""            // Missing or unrecognised type tag
)

// AllRoles returns every known role.
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleLeader, RoleSubAdmin, RoleSuperAdmin}
}

// ParseRole maps a raw type tag to a Role. Anything that is not an exact
// known tag becomes RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.TrimSpace(s)) {
	case RoleEmployee:
		return RoleEmployee
	case RoleLeader:
		return RoleLeader
	case RoleSubAdmin:
		return RoleSubAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) Known() bool {
	return r != RoleUnknown
}

type User struct {
	ID     string
	Type   Role
	Name   string
	Email  string
	Mobile string
	Image  string
}

// IsAdmin checks if user is a sub or super admin
func (u *User) IsAdmin() bool {
	return u.Type == RoleSubAdmin || u.Type == RoleSuperAdmin
}

// IsLeader checks if user leads a team
func (u *User) IsLeader() bool {
	return u.Type == RoleLeader
}

// IsTracked checks if the user's location is streamed while checked in
func (u *User) IsTracked() bool {
	return u.Type == RoleEmployee || u.Type == RoleLeader
}

// CanObserve checks if user may watch live locations of others
func (u *User) CanObserve() bool {
	return u.IsAdmin() || u.IsLeader()
}

type userJSON struct {
	ID     string `json:"id,omitempty"`
	AltID  string `json:"_id,omitempty"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	Image  string `json:"image"`
}

// UnmarshalJSON accepts the identity under either "id" or "_id".
func (u *User) UnmarshalJSON(data []byte) error {
	var raw userJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id := raw.ID
	if id == "" {
		id = raw.AltID
	}

	*u = User{
		ID:     id,
		Type:   ParseRole(raw.Type),
		Name:   raw.Name,
		Email:  raw.Email,
		Mobile: raw.Mobile,
		Image:  raw.Image,
	}
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userJSON{
		ID:     u.ID,
		Type:   string(u.Type),
		Name:   u.Name,
		Email:  u.Email,
		Mobile: u.Mobile,
		Image:  u.Image,
	})
}
