package products

import (
	"strings"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

func validate(p Product) error {
	if p.SKU == "" {
		return shared.Invalid("sku is required")
	}
	if n := len([]rune(p.Name)); n < 2 || n > 200 {
		return shared.Invalid("name must be between 2 and 200 characters")
	}
	if strings.TrimSpace(p.Category) == "" {
		return shared.Invalid("category is required")
	}
	if p.Price.IsNegative() {
		return shared.Invalid("price must be greater than or equal to 0")
	}
	if p.CostPrice.IsNegative() {
		return shared.Invalid("costPrice must be greater than or equal to 0")
	}
	if p.Stock < 0 {
		return shared.Invalid("stock must be greater than or equal to 0")
	}
	if p.ReorderLevel < 0 {
		return shared.Invalid("reorderLevel must be greater than or equal to 0")
	}
	return nil
}
