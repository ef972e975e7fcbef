package users

import (
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// ListFilter narrows the user listing.
type ListFilter struct {
	shared.PageRequest
	Role     shared.Role
	IsActive *bool
}

// UpdateInput lists the fields an admin may change on an account.
type UpdateInput struct {
	Name     *string      `json:"name" validate:"omitempty,min=2,max=50"`
	Role     *shared.Role `json:"role" validate:"omitempty,oneof=Admin Sales Purchase Inventory"`
	IsActive *bool        `json:"isActive"`
}
