package rbac

import "github.com/odyssey-erp/erp-api/internal/shared"

// Check decides whether identity may use capability. Authentication is checked
// before role membership.
func Check(identity *shared.Identity, c Capability) error {
	if c.Public {
		return nil
	}
	if identity == nil {
		return shared.Unauthorized("Not authorized, no token")
	}
	if !c.Allows(identity.Role) {
		return shared.Forbidden("User role %s is not authorized to access this route", identity.Role)
	}
	return nil
}
