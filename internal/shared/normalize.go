package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// NormalizeCode trims and upper-cases a business code (sku, order number...).
func NormalizeCode(code string) string {
	return upper.String(strings.TrimSpace(code))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return lower.String(strings.TrimSpace(email))
}

// ValidatePhone checks that phone parses as a telephone number. Numbers
// without a country prefix are read in defaultRegion.
func ValidatePhone(phone, defaultRegion string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", Invalid("phone is required")
	}
	if defaultRegion == "" {
		defaultRegion = "US"
	}
	if _, err := libphonenumber.Parse(phone, defaultRegion); err != nil {
		return "", Invalid("phone %q is not a valid phone number", phone)
	}
	return phone, nil
}

// GenerateNumber returns a document number such as SO-20240131-1A2B3C.
func GenerateNumber(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return NormalizeCode(fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix))
}

// TrimPtr trims *s in place and returns nil for empty strings.
func TrimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
