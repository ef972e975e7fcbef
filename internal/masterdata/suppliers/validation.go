package suppliers

import (
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// validate normalizes sup and checks its required fields.
func (s *Service) validate(sup Supplier) (Supplier, error) {
	sup.SupplierCode = shared.NormalizeCode(sup.SupplierCode)
	sup.Name = trim(sup.Name)
	sup.Email = shared.NormalizeEmail(sup.Email)
	sup.Address = sup.Address.Trimmed()
	sup.Company = trim(sup.Company)
	sup.TaxID = trim(sup.TaxID)
	sup.PaymentTerms = trim(sup.PaymentTerms)

	if sup.SupplierCode == "" {
		return Supplier{}, shared.Invalid("supplierCode is required")
	}
	if n := len([]rune(sup.Name)); n < 2 || n > 200 {
		return Supplier{}, shared.Invalid("name must be between 2 and 200 characters")
	}
	if sup.Email == "" {
		return Supplier{}, shared.Invalid("email is required")
	}
	phone, err := shared.ValidatePhone(sup.Phone, s.phoneRegion)
	if err != nil {
		return Supplier{}, err
	}
	sup.Phone = phone
	if sup.PaymentTerms == "" {
		sup.PaymentTerms = DefaultPaymentTerms
	}
	return sup, nil
}
