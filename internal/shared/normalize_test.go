package shared

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCodeAndEmail(t *testing.T) {
	require.Equal(t, "PROD-001", NormalizeCode("  prod-001 "))
	require.Equal(t, "admin@erp.com", NormalizeEmail(" Admin@ERP.com "))
}

func TestValidatePhone(t *testing.T) {
	phone, err := ValidatePhone(" +1-555-0101 ", "US")
	require.NoError(t, err)
	require.Equal(t, "+1-555-0101", phone)

	_, err = ValidatePhone("call me maybe", "US")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ValidatePhone("", "US")
	require.ErrorIs(t, err, ErrValidation)
}

func TestGenerateNumber(t *testing.T) {
	now := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	n := GenerateNumber("so", now)
	require.True(t, strings.HasPrefix(n, "SO-20240131-"), n)
	require.Len(t, n, len("SO-20240131-")+6)
	require.NotEqual(t, n, GenerateNumber("so", now))
}

func TestErrorKinds(t *testing.T) {
	err := Rule("Invoice is already paid")
	require.ErrorIs(t, err, ErrBusinessRule)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, "Invoice is already paid", err.Error())
	require.Equal(t, "Invoice is already paid", Message(err, "fallback"))
	require.Equal(t, "fallback", Message(ErrNotFound, "fallback"))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("inventory")
	require.True(t, ok)
	require.Equal(t, RoleInventory, r)
	_, ok = ParseRole("Root")
	require.False(t, ok)
}
