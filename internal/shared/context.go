package shared

import (
	"context"
	"strings"
)

// Role names a user's access group.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleSales     Role = "Sales"
	RolePurchase  Role = "Purchase"
	RoleInventory Role = "Inventory"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleSales, RolePurchase, RoleInventory}

// ParseRole matches s case-insensitively against the known roles.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is one of Roles, matched exactly.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	Role   Role
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// ActorID returns the caller's user id, or zero for anonymous requests.
func ActorID(ctx context.Context) int64 {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return 0
}
