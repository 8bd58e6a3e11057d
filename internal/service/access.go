package service

import (
	"github.com/nurpe/giga-contracts/internal/model"
)

// AuthorizeWrite allows principals holding any known role to create contracts
// and change their status. Read scope is handled separately by scope.Resolve.
func AuthorizeWrite(principal model.Principal) error {
	if !model.HasAnyRole(principal, model.RoleAdmin, model.RoleGovernment, model.RoleISP) {
		return ErrPermissionDenied
	}
	return nil
}
