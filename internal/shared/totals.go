package shared

import "github.com/shopspring/decimal"

// LineItem is the priced line shared by sales orders, purchase orders and
// invoices.
type LineItem struct {
	ProductID   int64           `json:"product"`
	ProductSKU  string          `json:"productSku,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Totals are the document-level amounts derived from its lines.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalTax      decimal.Decimal `json:"totalTax"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// LineTotal is quantity × unitPrice − discount, rounded to cents.
func LineTotal(quantity int, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount).Round(2)
}

// ComputeTotals sums line totals, tax and discount and derives
// grandTotal = subtotal + totalTax − totalDiscount. It must be called before
// every write of a priced document.
func ComputeTotals(items []LineItem) Totals {
	var t Totals
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.Total)
		t.TotalTax = t.TotalTax.Add(it.Tax)
		t.TotalDiscount = t.TotalDiscount.Add(it.Discount)
	}
	t.Subtotal = t.Subtotal.Round(2)
	t.TotalTax = t.TotalTax.Round(2)
	t.TotalDiscount = t.TotalDiscount.Round(2)
	t.GrandTotal = t.Subtotal.Add(t.TotalTax).Sub(t.TotalDiscount)
	return t
}

// LineInput is the request shape of a priced line. Total is optional.
type LineInput struct {
	ProductID int64            `json:"product" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"required,gte=1"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Discount  decimal.Decimal  `json:"discount"`
	Tax       decimal.Decimal  `json:"tax"`
	Total     *decimal.Decimal `json:"total,omitempty"`
}

// BuildLines validates amounts and fills in missing line totals.
func BuildLines(inputs []LineInput) ([]LineItem, error) {
	if len(inputs) == 0 {
		return nil, Invalid("at least one item is required")
	}
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID <= 0 {
			return nil, Invalid("item %d: product is required", i+1)
		}
		if in.Quantity < 1 {
			return nil, Invalid("item %d: quantity must be at least 1", i+1)
		}
		if in.UnitPrice.IsNegative() || in.Discount.IsNegative() || in.Tax.IsNegative() {
			return nil, Invalid("item %d: amounts must not be negative", i+1)
		}
		total := LineTotal(in.Quantity, in.UnitPrice, in.Discount)
		if in.Total != nil {
			total = in.Total.Round(2)
		}
		items = append(items, LineItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice.Round(2),
			Discount:  in.Discount.Round(2),
			Tax:       in.Tax.Round(2),
			Total:     total,
		})
	}
	return items, nil
}
