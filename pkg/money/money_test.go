package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnown(t *testing.T) {
	t.Run("iso codes", func(t *testing.T) {
		assert.True(t, Known("EUR"))
		assert.True(t, Known("USD"))
		assert.True(t, Known("JPY"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.True(t, Known("eur"))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.False(t, Known("EURO"))
		assert.False(t, Known(""))
	})
}

func TestFraction(t *testing.T) {
	t.Run("two digit currency", func(t *testing.T) {
		fraction, err := Fraction("EUR")
		require.NoError(t, err)
		assert.Equal(t, 2, fraction)
	})

	t.Run("zero digit currency", func(t *testing.T) {
		fraction, err := Fraction("JPY")
		require.NoError(t, err)
		assert.Equal(t, 0, fraction)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := Fraction("XXX1")
		assert.Error(t, err)
	})
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		code   string
		want   int64
	}{
		{name: "exact", amount: "12.34", code: "EUR", want: 1234},
		{name: "rounds half up", amount: "12.345", code: "EUR", want: 1235},
		{name: "negative", amount: "-2.00", code: "EUR", want: -200},
		{name: "zero fraction currency", amount: "500", code: "JPY", want: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := MinorUnits(decimal.RequireFromString(tt.amount), tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, units)
		})
	}

	t.Run("unknown currency", func(t *testing.T) {
		_, err := MinorUnits(decimal.RequireFromString("1.00"), "NOPE")
		assert.Error(t, err)
	})
}

func TestFromMinorUnits(t *testing.T) {
	amount, err := FromMinorUnits(1234, "EUR")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.34")))

	amount, err = FromMinorUnits(500, "JPY")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(500)))
}

func TestFormat(t *testing.T) {
	formatted, err := Format(decimal.RequireFromString("1234.50"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "€1,234.50", formatted)

	_, err = Format(decimal.Zero, "NOPE")
	assert.Error(t, err)
}
