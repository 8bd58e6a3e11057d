package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleGovernment Role = "government"
	RoleISP        Role = "isp"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGovernment, RoleISP:
		return true
	}
	return false
}

// Principal is the authenticated caller as resolved from the access token.
type Principal struct {
	UserID    uuid.UUID
	Name      string
	CountryID uuid.UUID
	Roles     []Role
}

// HasAnyRole reports whether p carries at least one of roles.
func HasAnyRole(p Principal, roles ...Role) bool {
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return HasAnyRole(p, RoleAdmin)
}

func (p Principal) IsGovernment() bool {
	return HasAnyRole(p, RoleGovernment)
}

func (p Principal) IsISP() bool {
	return HasAnyRole(p, RoleISP)
}
