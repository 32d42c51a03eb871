package domain

// RoleScope describes where a role applies. Only the global scope exists
// today; the type keeps room for project- or resource-scoped roles later.
type RoleScope string

// RoleName identifies a role within its scope.
type RoleName string

// Known role scopes.
const (
	ScopeGlobal RoleScope = "global"
)

// Known role names. The set is closed: the guard logic switches over these
// values rather than comparing free-form strings, so an unknown role can
// never slip past an owner check.
const (
	RoleOwner  RoleName = "owner"
	RoleMember RoleName = "member"
	RoleGuest  RoleName = "guest"
)

// Role is a scope + name descriptor, e.g. global/owner.
type Role struct {
	Scope RoleScope `json:"scope"`
	Name  RoleName  `json:"name"`
}

// GlobalOwner is the role held by the instance owner.
var GlobalOwner = Role{Scope: ScopeGlobal, Name: RoleOwner}

// GlobalMember is the default role for regular users.
var GlobalMember = Role{Scope: ScopeGlobal, Name: RoleMember}

// IsOwner reports whether the role is exactly global/owner.
func (r Role) IsOwner() bool {
	return r.Scope == ScopeGlobal && r.Name == RoleOwner
}

// Valid reports whether the role is one of the known scope/name combinations.
func (r Role) Valid() bool {
	if r.Scope != ScopeGlobal {
		return false
	}
	switch r.Name {
	case RoleOwner, RoleMember, RoleGuest:
		return true
	}
	return false
}

// String returns the scope/name form, e.g. "global/owner".
func (r Role) String() string {
	return string(r.Scope) + "/" + string(r.Name)
}
