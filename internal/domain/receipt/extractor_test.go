package receipt

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
)

var (
	testCurrencies = []string{"EUR", "USD"}
	testUnits      = []string{"gab", "kg", "g", "l", "ml"}
)

func TestExtractor_Extract(t *testing.T) {
	extractor := NewExtractor(slog.New(slog.DiscardHandler))

	t.Run("two line purchase", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Piens Exporta 2%\n1 gab X 1,09 EUR 1,09 A", testCurrencies, testUnits)
		require.NoError(t, err)

		assert.Equal(t, "Piens Exporta 2%", candidate.RawLabel)
		assert.Equal(t, "EUR", candidate.CurrencyCode)
		assert.True(t, decimal.RequireFromString("1.09").Equal(candidate.UnitPrice))
		assert.True(t, decimal.RequireFromString("1.09").Equal(candidate.LineTotal))
		assert.True(t, decimal.NewFromInt(1).Equal(candidate.Quantity))
		require.NotNil(t, candidate.UnitSymbol)
		assert.Equal(t, "gab", *candidate.UnitSymbol)
		assert.False(t, candidate.DiscountApplied)
	})

	t.Run("discounted purchase keeps unit price", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Tualetes papire Zewa Delicate\nCare, gab\n1 gab X 4,99 EUR 4,99 8\nAtl -2,00 Gala cena 2,99",
			testCurrencies, testUnits)
		require.NoError(t, err)

		assert.Equal(t, "Tualetes papire Zewa Delicate Care, gab", candidate.RawLabel)
		assert.True(t, decimal.RequireFromString("4.99").Equal(candidate.UnitPrice))
		assert.True(t, decimal.RequireFromString("2.99").Equal(candidate.LineTotal))
		assert.True(t, decimal.NewFromInt(1).Equal(candidate.Quantity))
		assert.True(t, candidate.DiscountApplied)
	})

	t.Run("label unit scales quantity", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Tostermaize franēu\nBrioche 450g\n1 gab x 2,55 EUR 2,55 8", testCurrencies, testUnits)
		require.NoError(t, err)

		assert.Equal(t, "Tostermaize franēu Brioche 450g", candidate.RawLabel)
		assert.True(t, decimal.NewFromInt(450).Equal(candidate.Quantity),
			"expected 450, got %s", candidate.Quantity)
		require.NotNil(t, candidate.UnitSymbol)
		assert.Equal(t, "g", *candidate.UnitSymbol)
	})

	t.Run("label unit multiplies base quantity", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Siers Kluba 200g\n2 gab X 2,49 EUR 4,98 A", testCurrencies, testUnits)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(400).Equal(candidate.Quantity),
			"expected 400, got %s", candidate.Quantity)
		require.NotNil(t, candidate.UnitSymbol)
		assert.Equal(t, "g", *candidate.UnitSymbol)
		assert.True(t, decimal.RequireFromString("2.49").Equal(candidate.UnitPrice))
		assert.True(t, decimal.RequireFromString("4.98").Equal(candidate.LineTotal))
	})

	t.Run("label unit uses last number in label", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Sviests Exporta 82,5% 200g\n1 gab X 3,09 EUR 3,09 A\nAtl -0,50 Gala cena 2,59",
			testCurrencies, testUnits)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(200).Equal(candidate.Quantity))
		require.NotNil(t, candidate.UnitSymbol)
		assert.Equal(t, "g", *candidate.UnitSymbol)
		assert.True(t, decimal.RequireFromString("2.59").Equal(candidate.LineTotal))
	})

	t.Run("weighed purchase with fractional quantity", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Banāni\n0,478 kg X 1,06 EUR 0,51 A", testCurrencies, testUnits)
		require.NoError(t, err)

		assert.True(t, decimal.RequireFromString("0.478").Equal(candidate.Quantity))
		require.NotNil(t, candidate.UnitSymbol)
		assert.Equal(t, "kg", *candidate.UnitSymbol)
		assert.True(t, decimal.RequireFromString("1.06").Equal(candidate.UnitPrice))
		assert.True(t, decimal.RequireFromString("0.51").Equal(candidate.LineTotal))
	})

	t.Run("no unit when token is not configured", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Maisiņš\n1 pcs X 0,15 EUR 0,15", testCurrencies, []string{"kg", "g"})
		require.NoError(t, err)
		assert.Nil(t, candidate.UnitSymbol)
	})

	t.Run("currency match is case insensitive", func(t *testing.T) {
		candidate, err := extractor.Extract(
			"Piens\n1 gab X 1,09 eur 1,09", testCurrencies, testUnits)
		require.NoError(t, err)
		assert.Equal(t, "EUR", candidate.CurrencyCode)
	})
}

func TestExtractor_Extract_errors(t *testing.T) {
	extractor := NewExtractor(slog.New(slog.DiscardHandler))

	assertParseError := func(t *testing.T, err error) *importing.ParseError {
		t.Helper()
		var parseErr *importing.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "extract", parseErr.Stage)
		return parseErr
	}

	t.Run("single line group", func(t *testing.T) {
		_, err := extractor.Extract("Piens", testCurrencies, testUnits)
		assertParseError(t, err)
	})

	t.Run("missing currency", func(t *testing.T) {
		_, err := extractor.Extract("Piens\n1 gab X 1,09 GBP 1,09", testCurrencies, testUnits)
		parseErr := assertParseError(t, err)
		assert.Contains(t, parseErr.Reason, "currency")
	})

	t.Run("missing price", func(t *testing.T) {
		_, err := extractor.Extract("Piens\n1 gab EUR", testCurrencies, testUnits)
		parseErr := assertParseError(t, err)
		assert.Contains(t, parseErr.Reason, "price")
	})

	t.Run("discount line without price", func(t *testing.T) {
		_, err := extractor.Extract(
			"Piens\n1 gab X 1,09 EUR 1,09\nAtl Gala cena", testCurrencies, testUnits)
		parseErr := assertParseError(t, err)
		assert.Contains(t, parseErr.Reason, "discounted")
	})
}
