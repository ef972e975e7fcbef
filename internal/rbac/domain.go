package rbac

import (
	"slices"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Capability is the access requirement a route declares. A capability with no
// roles admits any authenticated caller; Public admits anonymous callers too.
type Capability struct {
	Name   string
	Public bool
	Roles  []shared.Role
}

// Allows reports whether role satisfies the capability's role set.
func (c Capability) Allows(role shared.Role) bool {
	if len(c.Roles) == 0 {
		return true
	}
	return slices.Contains(c.Roles, role)
}

// RoleSet builds a capability restricted to the given roles.
func RoleSet(name string, roles ...shared.Role) Capability {
	return Capability{Name: name, Roles: roles}
}

var (
	Anonymous       = Capability{Name: "anonymous", Public: true}
	Authenticated   = Capability{Name: "authenticated"}
	AdminOnly       = RoleSet("admin", shared.RoleAdmin)
	SalesAccess     = RoleSet("sales", shared.RoleAdmin, shared.RoleSales)
	PurchaseAccess  = RoleSet("purchase", shared.RoleAdmin, shared.RolePurchase)
	InventoryAccess = RoleSet("inventory", shared.RoleAdmin, shared.RoleInventory)
	ReceivingAccess = RoleSet("receiving", shared.RoleAdmin, shared.RoleInventory, shared.RolePurchase)
)
