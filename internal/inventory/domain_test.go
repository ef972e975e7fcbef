package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

func TestApply(t *testing.T) {
	cases := []struct {
		name    string
		current int
		op      Operation
		qty     int
		want    int
	}{
		{"add", 25, OpAdd, 5, 30},
		{"subtract", 25, OpSubtract, 5, 20},
		{"subtract floors at zero", 3, OpSubtract, 10, 0},
		{"set", 25, OpSet, 8, 8},
		{"set zero", 25, OpSet, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply(tc.current, tc.op, tc.qty)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	_, err := Apply(10, OpAdd, -1)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = Apply(10, Operation("multiply"), 2)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation(" Subtract ")
	require.NoError(t, err)
	require.Equal(t, OpSubtract, op)

	_, err = ParseOperation("drop")
	require.ErrorIs(t, err, shared.ErrValidation)
}
